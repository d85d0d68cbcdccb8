package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/joseph-ayodele/cert-verifier/constants"
)

// Config holds all application configuration
type Config struct {
	Log       LogConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Server    ServerConfig
	OCR       OCRConfig
	LinkCheck LinkCheckConfig
	Names     NamesConfig
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | text
}

// DatabaseConfig holds settings for the submission-record store
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool // sqlite only: create the submissions table if missing
}

// CacheConfig holds the optional Redis cache in front of hash lookups
type CacheConfig struct {
	RedisAddr     string // empty disables the cache
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	KeyPrefix     string
}

// ServerConfig holds listener addresses for verifierd
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Pdftotext          string
	Pdftoppm           string
	Tesseract          string
	TesseractLang      string
	TessdataDir        string
	HeicConverter      string
	ArtifactCacheDir   string
	ScannedPDFFallback bool
	MaxPages           int
}

// LinkCheckConfig holds URL probing limits
type LinkCheckConfig struct {
	Timeout              time.Duration
	StageBudget          time.Duration
	Workers              int
	MaxBodyBytes         int64
	UserAgent            string
	AllowPrivateNetworks bool
}

// NamesConfig holds the holder-name heuristic settings
type NamesConfig struct {
	BlocklistFile string
	Blocklist     []string
	MaxCandidates int
}

// envBindings keeps the flat environment names used by deployments.
var envBindings = map[string]string{
	"log.level":                        "LOG_LEVEL",
	"log.format":                       "LOG_FORMAT",
	"database.driver":                  "DB_DRIVER",
	"database.dsn":                     "DB_URL",
	"database.max_conns":               "DB_MAX_CONNS",
	"database.min_conns":               "DB_MIN_CONNS",
	"database.max_conn_lifetime":       "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time":      "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":            "DB_DIAL_TIMEOUT",
	"database.statement_timeout":       "DB_STATEMENT_TIMEOUT",
	"database.auto_migrate":            "DB_AUTO_MIGRATE",
	"cache.redis_addr":                 "REDIS_ADDR",
	"cache.redis_password":             "REDIS_PASS",
	"cache.redis_db":                   "REDIS_DB",
	"cache.ttl":                        "REDIS_TTL",
	"cache.key_prefix":                 "REDIS_KEY_PREFIX",
	"server.grpc_addr":                 "GRPC_ADDR",
	"server.metrics_addr":              "METRICS_ADDR",
	"ocr.pdftotext":                    "PDFTOTEXT_BIN",
	"ocr.pdftoppm":                     "PDFTOPPM_BIN",
	"ocr.tesseract":                    "TESSERACT_BIN",
	"ocr.tesseract_lang":               "TESSERACT_LANG",
	"ocr.tessdata_dir":                 "TESSDATA_PREFIX",
	"ocr.heic_converter":               "HEIC_CONVERTER",
	"ocr.artifact_cache_dir":           "ARTIFACT_CACHE_DIR",
	"ocr.scanned_pdf_fallback":         "OCR_SCANNED_PDF_FALLBACK",
	"ocr.max_pages":                    "OCR_MAX_PAGES",
	"linkcheck.timeout":                "LINKCHECK_TIMEOUT",
	"linkcheck.stage_budget":           "LINKCHECK_STAGE_BUDGET",
	"linkcheck.workers":                "LINKCHECK_WORKERS",
	"linkcheck.max_body_bytes":         "LINKCHECK_MAX_BODY_BYTES",
	"linkcheck.user_agent":             "LINKCHECK_USER_AGENT",
	"linkcheck.allow_private_networks": "LINKCHECK_ALLOW_PRIVATE",
	"names.blocklist_file":             "NAME_BLOCKLIST_FILE",
	"names.max_candidates":             "NAME_MAX_CANDIDATES",
}

// DefaultUserAgent is a desktop browser string; some issuer sites refuse
// obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:certverify.db?_pragma=busy_timeout(5000)")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", 0)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.key_prefix", "certverify:")
	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.heic_converter", "magick")
	v.SetDefault("ocr.artifact_cache_dir", "./tmp")
	v.SetDefault("ocr.scanned_pdf_fallback", false)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("linkcheck.timeout", 8*time.Second)
	v.SetDefault("linkcheck.stage_budget", 20*time.Second)
	v.SetDefault("linkcheck.workers", 6)
	v.SetDefault("linkcheck.max_body_bytes", 2<<20)
	v.SetDefault("linkcheck.user_agent", DefaultUserAgent)
	v.SetDefault("linkcheck.allow_private_networks", false)
	v.SetDefault("names.blocklist_file", "")
	v.SetDefault("names.max_candidates", 3)
}

// LoadConfig reads configuration from v (defaults, optional config file and
// environment). Pass nil to use a fresh viper instance.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "bind "+env, err)
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Database: DatabaseConfig{
			Driver:           strings.ToLower(v.GetString("database.driver")),
			DSN:              v.GetString("database.dsn"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			DialTimeout:      v.GetDuration("database.dial_timeout"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
			AutoMigrate:      v.GetBool("database.auto_migrate"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			TTL:           v.GetDuration("cache.ttl"),
			KeyPrefix:     v.GetString("cache.key_prefix"),
		},
		Server: ServerConfig{
			GRPCAddr:    v.GetString("server.grpc_addr"),
			MetricsAddr: v.GetString("server.metrics_addr"),
		},
		OCR: OCRConfig{
			Pdftotext:          v.GetString("ocr.pdftotext"),
			Pdftoppm:           v.GetString("ocr.pdftoppm"),
			Tesseract:          v.GetString("ocr.tesseract"),
			TesseractLang:      v.GetString("ocr.tesseract_lang"),
			TessdataDir:        v.GetString("ocr.tessdata_dir"),
			HeicConverter:      v.GetString("ocr.heic_converter"),
			ArtifactCacheDir:   v.GetString("ocr.artifact_cache_dir"),
			ScannedPDFFallback: v.GetBool("ocr.scanned_pdf_fallback"),
			MaxPages:           v.GetInt("ocr.max_pages"),
		},
		LinkCheck: LinkCheckConfig{
			Timeout:              v.GetDuration("linkcheck.timeout"),
			StageBudget:          v.GetDuration("linkcheck.stage_budget"),
			Workers:              v.GetInt("linkcheck.workers"),
			MaxBodyBytes:         v.GetInt64("linkcheck.max_body_bytes"),
			UserAgent:            v.GetString("linkcheck.user_agent"),
			AllowPrivateNetworks: v.GetBool("linkcheck.allow_private_networks"),
		},
		Names: NamesConfig{
			BlocklistFile: v.GetString("names.blocklist_file"),
			MaxCandidates: v.GetInt("names.max_candidates"),
		},
	}

	if cfg.Names.BlocklistFile != "" {
		terms, err := LoadBlocklist(cfg.Names.BlocklistFile)
		if err != nil {
			return nil, err
		}
		cfg.Names.Blocklist = terms
	} else {
		cfg.Names.Blocklist = append([]string(nil), constants.DefaultNameBlocklist...)
	}
	return cfg, nil
}

type blocklistFile struct {
	Terms []string `yaml:"terms"`
}

// LoadBlocklist reads an institution blocklist YAML file of the form
//
//	terms: [certificate, university]
//
// An unreadable or empty file is a configuration error.
func LoadBlocklist(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError("CONFIG_ERROR", "read blocklist file", err)
	}
	var f blocklistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "parse blocklist file", err)
	}
	terms := make([]string, 0, len(f.Terms))
	for _, t := range f.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("blocklist file %q has no terms", path), ErrConfig)
	}
	return terms, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("DB_DRIVER", c.Database.Driver, Required, OneOf("postgres", "sqlite"))
	v.Field("DB_URL", c.Database.DSN, Required)
	v.Field("LINKCHECK_WORKERS", c.LinkCheck.Workers, Positive)
	v.Field("LINKCHECK_TIMEOUT", c.LinkCheck.Timeout, Positive)
	v.Field("LINKCHECK_STAGE_BUDGET", c.LinkCheck.StageBudget, Positive)
	v.Field("LINKCHECK_MAX_BODY_BYTES", c.LinkCheck.MaxBodyBytes, Positive)
	v.Field("NAME_MAX_CANDIDATES", c.Names.MaxCandidates, Positive)
	v.Field("names.blocklist", len(c.Names.Blocklist), Positive)
	if c.LinkCheck.StageBudget > 0 && c.LinkCheck.Timeout > c.LinkCheck.StageBudget {
		v.Add("LINKCHECK_TIMEOUT", c.LinkCheck.Timeout, "must not exceed LINKCHECK_STAGE_BUDGET")
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrConfig)
	}
	return nil
}
