package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/mintbot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func testPosition() domain.Position {
	return domain.Position{
		Mint:             "TokenMint1111111111111111111111111111111111",
		EntryCostSOL:     0.25,
		EntryReceivedRaw: 1_000_000,
		TakeProfitPct:    20,
		StopLossPct:      10,
		OpenedAt:         time.Now().UTC().Add(-90 * time.Second),
	}
}

func TestNotifyEntry(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	c.NotifyEntry(context.Background(), testPosition(), "autopilot")

	out := buf.String()
	assert.Contains(t, out, "ENTRY")
	assert.Contains(t, out, "autopilot")
	assert.Contains(t, out, "0.2500 SOL")
	assert.Contains(t, out, "TP 20.0%")
}

func TestNotifyExit(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	c.NotifyExit(context.Background(), testPosition(), "stop_loss", -11.0, 0.22)

	out := buf.String()
	assert.Contains(t, out, "EXIT")
	assert.Contains(t, out, "stop_loss")
	assert.Contains(t, out, "-11.00%")
	assert.Contains(t, out, "0.2200 SOL")
}

func TestRenderPositions_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderPositions(&buf, nil, time.Now().UTC())
	assert.Contains(t, buf.String(), "no open positions")
}

func TestRenderPositions_Table(t *testing.T) {
	var buf bytes.Buffer
	pos := testPosition()
	pos.PartialExitTaken = true

	RenderPositions(&buf, []domain.Position{pos}, time.Now().UTC())

	out := buf.String()
	assert.Contains(t, out, "TokenM..1111", "el mint se acorta")
	assert.Contains(t, out, "yes", "marca el parcial tomado")
	assert.Contains(t, out, "1m30s")
}

func TestRenderAutopilot(t *testing.T) {
	var buf bytes.Buffer
	cfg := domain.DefaultAutopilotConfig()
	cfg.Enabled = true
	cfg.Blacklist["BadMint11111111111111111111111111111111111"] = true

	RenderAutopilot(&buf, cfg, 1, time.Now().UTC())

	out := buf.String()
	assert.Contains(t, out, "autopilot: ON")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "cooldown: ready")
	assert.Contains(t, out, "30s", "ventana del primer gate")
	assert.Contains(t, out, "blacklist (1)")
}

func TestShortMint(t *testing.T) {
	assert.Equal(t, "short", shortMint("short"))
	long := strings.Repeat("a", 30) + "zzzz"
	assert.Equal(t, "aaaaaa..zzzz", shortMint(long))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "45s", formatAge(45*time.Second))
	assert.Equal(t, "2m5s", formatAge(2*time.Minute+5*time.Second))
	assert.Equal(t, "3h7m", formatAge(3*time.Hour+7*time.Minute))
	assert.Equal(t, "0s", formatAge(-time.Second))
}
