package domain

import (
	"sort"
	"time"
)

// Candidate es un mint evaluable para entrada autónoma, con sus métricas
// por horizonte ya calculadas por la fuente (feed o screener).
type Candidate struct {
	Mint    string
	Metrics []WindowMetrics
	Score   float64
}

// PassesGates devuelve true si el candidato supera TODOS los gates:
// conteo mínimo de buys Y cambio mínimo de precio, evaluados de forma
// independiente en cada horizonte. Fallar cualquiera lo excluye.
func (c Candidate) PassesGates(gates []HorizonGate) bool {
	for _, gate := range gates {
		m, ok := c.metricsFor(gate.Window)
		if !ok {
			return false
		}
		if m.BuyCount < gate.MinBuyCount {
			return false
		}
		if m.ChangePct < gate.MinChangePct {
			return false
		}
	}
	return true
}

func (c Candidate) metricsFor(window time.Duration) (WindowMetrics, bool) {
	for _, m := range c.Metrics {
		if m.Window == window {
			return m, true
		}
	}
	return WindowMetrics{}, false
}

// Pesos del score: los horizontes cortos pesan más para favorecer
// ráfagas de momentum recientes sobre tendencias ya maduras.
const (
	scoreBuyWeight    = 1.0
	scoreChangeWeight = 2.0
)

// ScoreCandidate calcula el score como combinación lineal ponderada de
// buys y cambio porcentual en cada horizonte. Los gates deben ir ordenados
// de más corto a más largo; el horizonte i recibe peso 1/(i+1).
// Monótono: aumentar cualquier métrica nunca reduce el score.
func ScoreCandidate(c Candidate, gates []HorizonGate) float64 {
	score := 0.0
	for i, gate := range gates {
		m, ok := c.metricsFor(gate.Window)
		if !ok {
			continue
		}
		horizonWeight := 1.0 / float64(i+1)
		score += horizonWeight * (scoreBuyWeight*float64(m.BuyCount) + scoreChangeWeight*m.ChangePct)
	}
	return score
}

// RankCandidates puntúa y ordena los candidatos por score descendente.
// Empates se resuelven por mint para que el orden sea determinista.
func RankCandidates(cands []Candidate, gates []HorizonGate) []Candidate {
	for i := range cands {
		cands[i].Score = ScoreCandidate(cands[i], gates)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Mint < cands[j].Mint
	})
	return cands
}
