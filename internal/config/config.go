package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"salonrecon/internal/services/analysis"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`

	// Directories
	DataDirectory  string `json:"data_directory"`
	VaultDirectory string `json:"vault_directory"`

	// Remote functions
	ScriptBaseURL string        `json:"script_base_url"`
	ScriptTimeout time.Duration `json:"script_timeout"`

	// Uploads and sessions
	MaxUploadBytes int64         `json:"max_upload_bytes"`
	NoticeTTL      time.Duration `json:"notice_ttl"`
	PurgeSchedule  string        `json:"purge_schedule"`
	SessionMaxAge  time.Duration `json:"session_max_age"`

	// Analysis
	ColumnsFile string              `json:"columns_file"`
	Heuristics  analysis.Heuristics `json:"heuristics"`

	// Never serialized
	VaultPassphrase string `json:"-"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:     ":8080",
		DataDirectory:  filepath.Join(wd, "data"),
		VaultDirectory: filepath.Join(wd, "data", "vault"),
		ScriptBaseURL:  "http://localhost:8888",
		ScriptTimeout:  60 * time.Second,
		MaxUploadBytes: 20 << 20,
		NoticeTTL:      5 * time.Second,
		PurgeSchedule:  "@every 10m",
		SessionMaxAge:  2 * time.Hour,
		Heuristics:     analysis.DefaultHeuristics(),
	}
}

// Load reads .env (if present) and applies SALON_* environment overrides.
// Malformed values are logged and the default is kept.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	cfg := DefaultConfig()

	if addr := os.Getenv("SALON_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("SALON_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}
	if dataDir := os.Getenv("SALON_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
		cfg.VaultDirectory = filepath.Join(dataDir, "vault")
	}
	if vaultDir := os.Getenv("SALON_VAULT_DIR"); vaultDir != "" {
		cfg.VaultDirectory = vaultDir
	}
	if base := os.Getenv("SALON_SCRIPT_BASE_URL"); base != "" {
		cfg.ScriptBaseURL = base
	}
	if sched := os.Getenv("SALON_PURGE_SCHEDULE"); sched != "" {
		cfg.PurgeSchedule = sched
	}
	if cols := os.Getenv("SALON_COLUMNS_FILE"); cols != "" {
		cfg.ColumnsFile = cols
	}
	if brand := os.Getenv("SALON_FALLBACK_BRAND"); brand != "" {
		cfg.Heuristics.FallbackBrand = brand
	}
	cfg.VaultPassphrase = os.Getenv("SALON_VAULT_PASSPHRASE")

	envDuration("SALON_SCRIPT_TIMEOUT", &cfg.ScriptTimeout)
	envDuration("SALON_NOTICE_TTL", &cfg.NoticeTTL)
	envDuration("SALON_SESSION_MAX_AGE", &cfg.SessionMaxAge)

	if mb := os.Getenv("SALON_MAX_UPLOAD_MB"); mb != "" {
		if n, err := strconv.ParseInt(mb, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n << 20
		} else {
			log.Printf("Warning: ignoring SALON_MAX_UPLOAD_MB=%q", mb)
		}
	}

	envFloat("SALON_DISCREPANCY_RATE", &cfg.Heuristics.AssumedDiscrepancyRate)
	envFloat("SALON_DEFAULT_MATCH_PERCENTAGE", &cfg.Heuristics.DefaultMatchPercentage)
	envFloat("SALON_GROWTH_RATE", &cfg.Heuristics.GrowthRate)
	envFloat("SALON_AUTOMATION_SAVINGS_RATE", &cfg.Heuristics.AutomationSavingsRate)
	envFloat("SALON_REVIEW_THRESHOLD", &cfg.Heuristics.ReviewThreshold)
	envFloat("SALON_HIGH_VALUE_TICKET", &cfg.Heuristics.HighValueTicket)
	envFloat("SALON_LARGE_TICKET", &cfg.Heuristics.LargeTicket)
	envFloat("SALON_MINUTES_PER_RECORD", &cfg.Heuristics.MinutesPerRecord)

	cfg.ensureDirectories()

	return cfg
}

// Analyzer builds an analyzer from the column mapping file and heuristics.
// A broken mapping file falls back to the built-in patterns.
func (c *Config) Analyzer() *analysis.Analyzer {
	a := analysis.New()
	a.Heuristics = c.Heuristics

	if c.ColumnsFile != "" {
		cols, err := analysis.LoadColumns(c.ColumnsFile)
		if err != nil {
			log.Printf("Warning: could not load column mapping %s: %v", c.ColumnsFile, err)
		} else {
			a.Columns = cols
		}
	}
	return a
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Warning: ignoring %s=%q", key, v)
		return
	}
	*dst = d
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		log.Printf("Warning: ignoring %s=%q", key, v)
		return
	}
	*dst = f
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	for _, dir := range []string{c.DataDirectory, c.VaultDirectory} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Printf("Warning: could not create directory %s: %v", dir, err)
		}
	}
}
