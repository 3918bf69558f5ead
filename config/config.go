package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	RPC       RPCConfig       `yaml:"rpc"`
	Jupiter   JupiterConfig   `yaml:"jupiter"`
	Feed      FeedConfig      `yaml:"feed"`
	Screener  ScreenerConfig  `yaml:"screener"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Autopilot AutopilotConfig `yaml:"autopilot"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Storage   StorageConfig   `yaml:"storage"`
	Control   ControlConfig   `yaml:"control"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`

	// WalletKey viene solo del entorno (WALLET_PRIVATE_KEY), nunca del YAML.
	WalletKey string `yaml:"-"`
}

// RPCConfig apunta al nodo RPC del venue.
type RPCConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// JupiterConfig contiene el base URL del agregador de rutas.
type JupiterConfig struct {
	BaseURL string `yaml:"base_url"`
}

// FeedConfig controla la suscripción al feed de momentum.
type FeedConfig struct {
	URL              string `yaml:"url"`
	RetentionSeconds int    `yaml:"retention_seconds"`
}

// ScreenerConfig contiene el base URL del screener de liquidez.
type ScreenerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ExecutorConfig controla el motor de ejecución fragmentada.
type ExecutorConfig struct {
	MaxShards           int     `yaml:"max_shards"`
	MinShardSOL         float64 `yaml:"min_shard_sol"`
	ExitShards          int     `yaml:"exit_shards"`
	ShardDelayMs        int     `yaml:"shard_delay_ms"`
	HardImpactPct       float64 `yaml:"hard_impact_pct"`
	SoftImpactPct       float64 `yaml:"soft_impact_pct"`
	MaxSlippageBps      int     `yaml:"max_slippage_bps"`
	EntrySlippageBps    int     `yaml:"entry_slippage_bps"`
	PriorityFeeLamports uint64  `yaml:"priority_fee_lamports"`
}

// MonitorConfig controla el loop de evaluación de posiciones.
type MonitorConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// AutopilotConfig controla las entradas autónomas. Los valores de runtime
// (enabled, budget, gates...) viven en domain.AutopilotConfig y se
// persisten; aquí solo va lo que no se edita en caliente.
type AutopilotConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	Source          string `yaml:"source"` // feed | screener
}

// StrategyConfig selecciona el perfil de TP/SL y permite overrides.
type StrategyConfig struct {
	Profile       string   `yaml:"profile"` // steady | scalp
	TakeProfitPct *float64 `yaml:"take_profit_pct"`
	StopLossPct   *float64 `yaml:"stop_loss_pct"`
	PartialExits  *bool    `yaml:"partial_exits"`
}

// StorageConfig controla dónde se persiste el estado.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// ControlConfig controla el endpoint del canal de control. AllowedIDs
// vacío permite cualquier sender (modo local).
type ControlConfig struct {
	ListenAddr string   `yaml:"listen_addr"`
	AllowedIDs []string `yaml:"allowed_ids"`
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Las variables de entorno sobreescriben el YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// MonitorInterval devuelve el intervalo del monitor como time.Duration.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// AutopilotInterval devuelve el intervalo del selector como time.Duration.
func (c *Config) AutopilotInterval() time.Duration {
	return time.Duration(c.Autopilot.IntervalSeconds) * time.Second
}

// FeedRetention devuelve la ventana de retención del feed.
func (c *Config) FeedRetention() time.Duration {
	return time.Duration(c.Feed.RetentionSeconds) * time.Second
}

// ShardDelay devuelve el delay entre shards.
func (c *Config) ShardDelay() time.Duration {
	return time.Duration(c.Executor.ShardDelayMs) * time.Millisecond
}

// RPCTimeout devuelve el timeout de las llamadas RPC.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPC.TimeoutSeconds) * time.Second
}

// StrategyDefaults devuelve (takeProfitPct, stopLossPct, partialExits)
// según el perfil, aplicando overrides individuales si están presentes.
// Los dos perfiles observados en producción son irreconciliables entre sí,
// por eso son selección explícita y no un default único.
func (c *Config) StrategyDefaults() (tp, sl float64, partials bool) {
	switch c.Strategy.Profile {
	case "scalp":
		tp, sl, partials = 5.0, 1.5, false
	default: // steady
		tp, sl, partials = 20.0, 10.0, true
	}
	if c.Strategy.TakeProfitPct != nil {
		tp = *c.Strategy.TakeProfitPct
	}
	if c.Strategy.StopLossPct != nil {
		sl = *c.Strategy.StopLossPct
	}
	if c.Strategy.PartialExits != nil {
		partials = *c.Strategy.PartialExits
	}
	return tp, sl, partials
}

// applyEnvOverrides sobreescribe valores con variables de entorno.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.RPC.URL = v
	}
	if v := os.Getenv("JUPITER_BASE_URL"); v != "" {
		cfg.Jupiter.BaseURL = v
	}
	if v := os.Getenv("WALLET_PRIVATE_KEY"); v != "" {
		cfg.WalletKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.RPC.URL == "" {
		cfg.RPC.URL = "https://api.mainnet-beta.solana.com"
	}
	if cfg.RPC.TimeoutSeconds <= 0 {
		cfg.RPC.TimeoutSeconds = 15
	}
	if cfg.Jupiter.BaseURL == "" {
		cfg.Jupiter.BaseURL = "https://quote-api.jup.ag/v6"
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "wss://pumpportal.fun/api/data"
	}
	if cfg.Feed.RetentionSeconds <= 0 {
		cfg.Feed.RetentionSeconds = 300
	}
	if cfg.Screener.BaseURL == "" {
		cfg.Screener.BaseURL = "https://api.dexscreener.com"
	}
	if cfg.Executor.MaxShards <= 0 {
		cfg.Executor.MaxShards = 4
	}
	if cfg.Executor.MinShardSOL <= 0 {
		cfg.Executor.MinShardSOL = 0.05
	}
	if cfg.Executor.ExitShards <= 0 {
		cfg.Executor.ExitShards = 3
	}
	if cfg.Executor.ShardDelayMs <= 0 {
		cfg.Executor.ShardDelayMs = 800
	}
	if cfg.Executor.HardImpactPct <= 0 {
		cfg.Executor.HardImpactPct = 8.0
	}
	if cfg.Executor.SoftImpactPct <= 0 {
		cfg.Executor.SoftImpactPct = 3.0
	}
	if cfg.Executor.MaxSlippageBps <= 0 {
		cfg.Executor.MaxSlippageBps = 1_500
	}
	if cfg.Executor.EntrySlippageBps <= 0 {
		cfg.Executor.EntrySlippageBps = 500
	}
	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 10
	}
	if cfg.Autopilot.IntervalSeconds <= 0 {
		cfg.Autopilot.IntervalSeconds = 15
	}
	if cfg.Autopilot.Source == "" {
		cfg.Autopilot.Source = "feed"
	}
	if cfg.Strategy.Profile == "" {
		cfg.Strategy.Profile = "steady"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "mintbot.db"
	}
	if cfg.Control.ListenAddr == "" {
		cfg.Control.ListenAddr = "127.0.0.1:8787"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = "127.0.0.1:9109"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
