package config

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/felipeoc/macrotiming-go/internal/utils"
)

// weightSumEpsilon is the tolerance applied when validating tables that must
// sum to 1.
const weightSumEpsilon = 1e-6

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
	Engine      EngineConfig    `mapstructure:"engine"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL string `mapstructure:"ttl"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type MonitorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

// EngineConfig is the full policy surface of the evaluation engine. All
// numeric thresholds, vote weights, phase biases and allocation tables are
// data here, not code: they can be edited in configs/config.yaml (or via
// environment variables) without touching the algorithms. Tables are loaded
// once at startup and treated as read-only for the process lifetime, so
// in-flight evaluations never observe a half-updated table.
type EngineConfig struct {
	Normalizer NormalizerConfig `mapstructure:"normalizer" json:"normalizer"`
	Classifier ClassifierConfig `mapstructure:"classifier" json:"classifier"`
	Scorer     ScorerConfig     `mapstructure:"scorer" json:"scorer"`
	Allocation AllocationConfig `mapstructure:"allocation" json:"allocation"`
}

type NormalizerConfig struct {
	MinObservations int     `mapstructure:"min_observations" json:"min_observations"`
	WindowDays      int     `mapstructure:"window_days" json:"window_days"`
	TrendSpan       int     `mapstructure:"trend_span" json:"trend_span"`
	TrendEpsilon    float64 `mapstructure:"trend_epsilon" json:"trend_epsilon"`
}

// VoteRule maps one (indicator, trend, z-bucket) observation to a weighted
// phase vote. Trend and ZBucket accept "any" as a wildcard.
type VoteRule struct {
	Indicator string  `mapstructure:"indicator" json:"indicator"`
	Trend     string  `mapstructure:"trend" json:"trend"`
	ZBucket   string  `mapstructure:"z_bucket" json:"z_bucket"`
	Phase     string  `mapstructure:"phase" json:"phase"`
	Weight    float64 `mapstructure:"weight" json:"weight"`
}

type ClassifierConfig struct {
	ZBucketLow  float64    `mapstructure:"z_bucket_low" json:"z_bucket_low"`
	ZBucketHigh float64    `mapstructure:"z_bucket_high" json:"z_bucket_high"`
	Votes       []VoteRule `mapstructure:"votes" json:"votes"`
}

type ScorerConfig struct {
	CycleWeight     float64            `mapstructure:"cycle_weight" json:"cycle_weight"`
	ValuationWeight float64            `mapstructure:"valuation_weight" json:"valuation_weight"`
	RiskWeight      float64            `mapstructure:"risk_weight" json:"risk_weight"`
	PhaseBias       map[string]float64 `mapstructure:"phase_bias" json:"phase_bias"`
	ValuationScale  float64            `mapstructure:"valuation_scale" json:"valuation_scale"`
	RiskScale       float64            `mapstructure:"risk_scale" json:"risk_scale"`
	Bands           BandThresholds     `mapstructure:"bands" json:"bands"`
}

// BandThresholds are the symmetric cut points between timing bands:
// value < -Outer is strongly bearish, value > Outer strongly bullish,
// |value| <= Inner neutral.
type BandThresholds struct {
	Inner float64 `mapstructure:"inner" json:"inner"`
	Outer float64 `mapstructure:"outer" json:"outer"`
}

type AllocationConfig struct {
	ConfidenceThreshold float64                       `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	ActionEpsilon       float64                       `mapstructure:"action_epsilon" json:"action_epsilon"`
	Sectors             []string                      `mapstructure:"sectors" json:"sectors"`
	PhaseTables         map[string]map[string]float64 `mapstructure:"phase_tables" json:"phase_tables"`
	Baseline            map[string]float64            `mapstructure:"baseline" json:"baseline"`
	CashBands           []CashBand                    `mapstructure:"cash_bands" json:"cash_bands"`
}

// CashBand sizes the cash / fixed income sleeve for timing scores below a
// cut point. Bands are checked in order; a score at or above every cut point
// gets no cash sleeve.
type CashBand struct {
	Below  float64 `mapstructure:"below" json:"below"`
	Weight float64 `mapstructure:"weight" json:"weight"`
}

// Load reads configuration from ./configs/config.yaml (if present),
// environment variables and the documented defaults, then validates the
// engine policy tables. An invalid table is fatal here so evaluation-time
// code never sees a malformed configuration.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the structural invariants of the engine tables.
func (c *Config) Validate() error {
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return utils.NewInvalidConfigurationErrorf("cache.ttl", "not a duration: %v", err)
		}
	}
	if c.Monitor.Interval != "" {
		if _, err := time.ParseDuration(c.Monitor.Interval); err != nil {
			return utils.NewInvalidConfigurationErrorf("monitor.interval", "not a duration: %v", err)
		}
	}
	if err := c.Engine.Normalizer.validate(); err != nil {
		return err
	}
	if err := c.Engine.Classifier.validate(); err != nil {
		return err
	}
	if err := c.Engine.Scorer.validate(); err != nil {
		return err
	}
	return c.Engine.Allocation.validate()
}

func (n NormalizerConfig) validate() error {
	if n.MinObservations < 2 {
		return utils.NewInvalidConfigurationError("engine.normalizer.min_observations", "must be at least 2")
	}
	if n.WindowDays <= 0 {
		return utils.NewInvalidConfigurationError("engine.normalizer.window_days", "must be positive")
	}
	if n.TrendSpan < 1 {
		return utils.NewInvalidConfigurationError("engine.normalizer.trend_span", "must be at least 1")
	}
	if n.TrendEpsilon < 0 {
		return utils.NewInvalidConfigurationError("engine.normalizer.trend_epsilon", "must not be negative")
	}
	return nil
}

// Window returns the normalization window as a duration.
func (n NormalizerConfig) Window() time.Duration {
	return time.Duration(n.WindowDays) * 24 * time.Hour
}

var validPhaseNames = map[string]struct{}{
	"expansion": {}, "slowdown": {}, "recession": {}, "recovery": {},
}

var validTrends = map[string]struct{}{
	"rising": {}, "falling": {}, "flat": {}, "any": {},
}

var validBuckets = map[string]struct{}{
	"low": {}, "mid": {}, "high": {}, "any": {},
}

func (c ClassifierConfig) validate() error {
	if c.ZBucketLow >= c.ZBucketHigh {
		return utils.NewInvalidConfigurationError("engine.classifier.z_bucket_low", "must be below z_bucket_high")
	}
	if len(c.Votes) == 0 {
		return utils.NewInvalidConfigurationError("engine.classifier.votes", "vote table is empty")
	}
	for i, rule := range c.Votes {
		if rule.Indicator == "" {
			return utils.NewInvalidConfigurationErrorf("engine.classifier.votes", "rule %d has no indicator", i)
		}
		if _, ok := validTrends[rule.Trend]; !ok {
			return utils.NewInvalidConfigurationErrorf("engine.classifier.votes", "rule %d: unknown trend %q", i, rule.Trend)
		}
		if _, ok := validBuckets[rule.ZBucket]; !ok {
			return utils.NewInvalidConfigurationErrorf("engine.classifier.votes", "rule %d: unknown z bucket %q", i, rule.ZBucket)
		}
		if _, ok := validPhaseNames[rule.Phase]; !ok {
			return utils.NewInvalidConfigurationErrorf("engine.classifier.votes", "rule %d: unknown phase %q", i, rule.Phase)
		}
		if rule.Weight <= 0 {
			return utils.NewInvalidConfigurationErrorf("engine.classifier.votes", "rule %d: weight must be positive", i)
		}
	}
	return nil
}

func (s ScorerConfig) validate() error {
	sum := s.CycleWeight + s.ValuationWeight + s.RiskWeight
	if math.Abs(sum-1) > weightSumEpsilon {
		return utils.NewInvalidConfigurationErrorf("engine.scorer", "component weights sum to %v, want 1", sum)
	}
	if s.CycleWeight < 0 || s.ValuationWeight < 0 || s.RiskWeight < 0 {
		return utils.NewInvalidConfigurationError("engine.scorer", "component weights must not be negative")
	}
	for name := range validPhaseNames {
		bias, ok := s.PhaseBias[name]
		if !ok {
			return utils.NewInvalidConfigurationErrorf("engine.scorer.phase_bias", "missing phase %q", name)
		}
		if bias < -100 || bias > 100 {
			return utils.NewInvalidConfigurationErrorf("engine.scorer.phase_bias", "bias for %q outside [-100,100]", name)
		}
	}
	for name := range s.PhaseBias {
		if _, ok := validPhaseNames[name]; !ok {
			return utils.NewInvalidConfigurationErrorf("engine.scorer.phase_bias", "unknown phase %q", name)
		}
	}
	if s.ValuationScale <= 0 {
		return utils.NewInvalidConfigurationError("engine.scorer.valuation_scale", "must be positive")
	}
	if s.RiskScale <= 0 {
		return utils.NewInvalidConfigurationError("engine.scorer.risk_scale", "must be positive")
	}
	if s.Bands.Inner <= 0 || s.Bands.Outer <= s.Bands.Inner || s.Bands.Outer > 100 {
		return utils.NewInvalidConfigurationError("engine.scorer.bands", "want 0 < inner < outer <= 100")
	}
	return nil
}

func (a AllocationConfig) validate() error {
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		return utils.NewInvalidConfigurationError("engine.allocation.confidence_threshold", "must be in [0,1]")
	}
	if a.ActionEpsilon <= 0 {
		return utils.NewInvalidConfigurationError("engine.allocation.action_epsilon", "must be positive")
	}
	if len(a.Sectors) == 0 {
		return utils.NewInvalidConfigurationError("engine.allocation.sectors", "sector universe is empty")
	}
	known := make(map[string]struct{}, len(a.Sectors))
	for _, s := range a.Sectors {
		if s == "" {
			return utils.NewInvalidConfigurationError("engine.allocation.sectors", "empty sector id")
		}
		if _, dup := known[s]; dup {
			return utils.NewInvalidConfigurationErrorf("engine.allocation.sectors", "duplicate sector %q", s)
		}
		known[s] = struct{}{}
	}
	for name := range validPhaseNames {
		table, ok := a.PhaseTables[name]
		if !ok {
			return utils.NewInvalidConfigurationErrorf("engine.allocation.phase_tables", "missing table for phase %q", name)
		}
		if err := validateWeightTable("engine.allocation.phase_tables."+name, table, known); err != nil {
			return err
		}
	}
	for name := range a.PhaseTables {
		if _, ok := validPhaseNames[name]; !ok {
			return utils.NewInvalidConfigurationErrorf("engine.allocation.phase_tables", "unknown phase %q", name)
		}
	}
	if len(a.Baseline) > 0 {
		if err := validateWeightTable("engine.allocation.baseline", a.Baseline, known); err != nil {
			return err
		}
	}
	prev := math.Inf(-1)
	for i, band := range a.CashBands {
		if band.Below <= prev {
			return utils.NewInvalidConfigurationErrorf("engine.allocation.cash_bands", "band %d: cut points must be strictly increasing", i)
		}
		if band.Weight < 0 || band.Weight > 1 {
			return utils.NewInvalidConfigurationErrorf("engine.allocation.cash_bands", "band %d: weight outside [0,1]", i)
		}
		prev = band.Below
	}
	return nil
}

func validateWeightTable(field string, table map[string]float64, known map[string]struct{}) error {
	sum := 0.0
	for sector, weight := range table {
		if _, ok := known[sector]; !ok {
			return utils.NewInvalidConfigurationErrorf(field, "sector %q is not in the sector universe", sector)
		}
		if weight < 0 {
			return utils.NewInvalidConfigurationErrorf(field, "sector %q has negative weight", sector)
		}
		sum += weight
	}
	if math.Abs(sum-1) > weightSumEpsilon {
		return utils.NewInvalidConfigurationErrorf(field, "weights sum to %v, want 1", sum)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "macrotiming")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("cache.ttl", "1h")

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "localhost:4318")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "5m")

	setEngineDefaults()
}

// setEngineDefaults installs the documented default policy: vote table,
// phase biases, band thresholds and per-phase allocation tables. These are
// starting points for policy tuning, not derived truths; override any of
// them in configs/config.yaml.
func setEngineDefaults() {
	viper.SetDefault("engine.normalizer.min_observations", 12)
	viper.SetDefault("engine.normalizer.window_days", 1095)
	viper.SetDefault("engine.normalizer.trend_span", 3)
	viper.SetDefault("engine.normalizer.trend_epsilon", 1e-4)

	viper.SetDefault("engine.classifier.z_bucket_low", -0.5)
	viper.SetDefault("engine.classifier.z_bucket_high", 0.5)
	viper.SetDefault("engine.classifier.votes", defaultVoteTable())

	viper.SetDefault("engine.scorer.cycle_weight", 0.40)
	viper.SetDefault("engine.scorer.valuation_weight", 0.35)
	viper.SetDefault("engine.scorer.risk_weight", 0.25)
	viper.SetDefault("engine.scorer.phase_bias", map[string]float64{
		"recovery":  75,
		"expansion": 50,
		"slowdown":  -50,
		"recession": -75,
	})
	viper.SetDefault("engine.scorer.valuation_scale", 5.0)
	viper.SetDefault("engine.scorer.risk_scale", 100.0)
	viper.SetDefault("engine.scorer.bands.inner", 20.0)
	viper.SetDefault("engine.scorer.bands.outer", 60.0)

	viper.SetDefault("engine.allocation.confidence_threshold", 0.4)
	viper.SetDefault("engine.allocation.action_epsilon", 0.005)
	viper.SetDefault("engine.allocation.sectors", defaultSectors())
	viper.SetDefault("engine.allocation.phase_tables", defaultPhaseTables())
	viper.SetDefault("engine.allocation.cash_bands", defaultCashBands())
}

// defaultCashBands grows the cash sleeve as the timing score deteriorates;
// strongly bullish scores hold no cash at all.
func defaultCashBands() []map[string]interface{} {
	return []map[string]interface{}{
		{"below": -50.0, "weight": 0.30},
		{"below": -20.0, "weight": 0.20},
		{"below": 20.0, "weight": 0.10},
		{"below": 50.0, "weight": 0.05},
	}
}

func defaultSectors() []string {
	return []string{
		"financials",
		"energy",
		"materials",
		"consumer_discretionary",
		"consumer_staples",
		"utilities",
		"healthcare",
		"technology",
		"industrials",
		"real_estate",
	}
}

func vote(indicator, trend, bucket, phase string, weight float64) map[string]interface{} {
	return map[string]interface{}{
		"indicator": indicator,
		"trend":     trend,
		"z_bucket":  bucket,
		"phase":     phase,
		"weight":    weight,
	}
}

// defaultVoteTable encodes the default cycle-reading policy. Reading guide:
// growth and employment push between expansion/recovery and
// slowdown/recession depending on direction and level; a flattening or
// inverted yield curve is the strongest slowdown/recession signal; easing
// inflation and rates mark recoveries; widening risk spreads mark
// contractions.
func defaultVoteTable() []map[string]interface{} {
	return []map[string]interface{}{
		// Growth: direction dominates, level picks expansion vs recovery.
		vote("gdp_growth", "rising", "high", "expansion", 2.0),
		vote("gdp_growth", "rising", "mid", "expansion", 1.5),
		vote("gdp_growth", "rising", "low", "recovery", 2.0),
		vote("gdp_growth", "falling", "any", "slowdown", 1.0),
		vote("gdp_growth", "falling", "mid", "recession", 0.5),
		vote("gdp_growth", "falling", "low", "recession", 2.0),

		// Inflation: acceleration is late-cycle, deceleration early-cycle.
		vote("inflation", "rising", "any", "slowdown", 1.5),
		vote("inflation", "rising", "any", "expansion", 0.5),
		vote("inflation", "falling", "any", "recovery", 1.5),
		vote("inflation", "falling", "any", "recession", 0.5),
		vote("inflation", "any", "high", "slowdown", 1.0),
		vote("inflation", "any", "low", "recovery", 1.0),

		// Policy rate: hiking cools the cycle, cutting restarts it.
		vote("policy_rate", "rising", "any", "slowdown", 1.5),
		vote("policy_rate", "rising", "any", "expansion", 0.5),
		vote("policy_rate", "falling", "any", "recovery", 1.5),
		vote("policy_rate", "falling", "any", "recession", 0.5),
		vote("policy_rate", "any", "high", "recession", 1.0),
		vote("policy_rate", "any", "low", "recovery", 1.0),

		// Yield-curve slope: flattening warns, inversion confirms,
		// steepening leads recoveries.
		vote("yield_curve", "falling", "any", "slowdown", 2.5),
		vote("yield_curve", "any", "low", "recession", 1.5),
		vote("yield_curve", "any", "low", "slowdown", 0.5),
		vote("yield_curve", "rising", "any", "recovery", 1.5),
		vote("yield_curve", "rising", "any", "expansion", 0.5),
		vote("yield_curve", "any", "high", "expansion", 1.0),

		// Employment.
		vote("employment", "rising", "any", "expansion", 1.5),
		vote("employment", "rising", "low", "recovery", 1.0),
		vote("employment", "falling", "any", "recession", 1.5),
		vote("employment", "falling", "any", "slowdown", 0.5),

		// Liquidity (broad money growth).
		vote("liquidity", "rising", "any", "recovery", 1.0),
		vote("liquidity", "rising", "any", "expansion", 0.5),
		vote("liquidity", "falling", "any", "slowdown", 0.5),
		vote("liquidity", "falling", "any", "recession", 0.5),

		// Risk spreads (CDS / EMBI).
		vote("risk_spread", "rising", "any", "recession", 1.0),
		vote("risk_spread", "rising", "any", "slowdown", 0.5),
		vote("risk_spread", "falling", "any", "recovery", 1.0),
		vote("risk_spread", "falling", "any", "expansion", 0.5),
		vote("risk_spread", "any", "high", "recession", 1.0),
		vote("risk_spread", "any", "low", "expansion", 0.5),
	}
}

func defaultPhaseTables() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"expansion": {
			"financials":             0.20,
			"consumer_discretionary": 0.15,
			"technology":             0.15,
			"materials":              0.10,
			"energy":                 0.10,
			"healthcare":             0.10,
			"industrials":            0.10,
			"utilities":              0.05,
			"real_estate":            0.05,
			"consumer_staples":       0.00,
		},
		"slowdown": {
			"utilities":              0.20,
			"healthcare":             0.15,
			"consumer_discretionary": 0.15,
			"financials":             0.10,
			"energy":                 0.10,
			"consumer_staples":       0.10,
			"technology":             0.10,
			"materials":              0.05,
			"real_estate":            0.05,
			"industrials":            0.00,
		},
		"recession": {
			"utilities":              0.25,
			"healthcare":             0.20,
			"consumer_discretionary": 0.15,
			"consumer_staples":       0.15,
			"financials":             0.10,
			"energy":                 0.10,
			"technology":             0.05,
			"materials":              0.00,
			"real_estate":            0.00,
			"industrials":            0.00,
		},
		"recovery": {
			"materials":              0.20,
			"energy":                 0.15,
			"financials":             0.15,
			"real_estate":            0.15,
			"technology":             0.10,
			"industrials":            0.10,
			"consumer_discretionary": 0.05,
			"healthcare":             0.05,
			"utilities":              0.05,
			"consumer_staples":       0.00,
		},
	}
}
