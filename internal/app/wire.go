// Package app builds a verification pipeline from configuration for the
// binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/evidence"
	"github.com/joseph-ayodele/cert-verifier/internal/hashgate"
	"github.com/joseph-ayodele/cert-verifier/internal/linkcheck"
	"github.com/joseph-ayodele/cert-verifier/internal/metrics"
	"github.com/joseph-ayodele/cert-verifier/internal/ocr"
	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
	"github.com/joseph-ayodele/cert-verifier/internal/qr"
	"github.com/joseph-ayodele/cert-verifier/internal/repository"
)

// App is a wired pipeline plus the resources it holds.
type App struct {
	Processor   *pipeline.Processor
	Gate        *hashgate.Gate
	DB          *repository.DB
	Submissions repository.SubmissionRepository
	Metrics     *metrics.Metrics

	Text   *ocr.Extractor
	QR     *qr.Extractor
	Parser *evidence.Parser

	redis  *redis.Client
	logger *slog.Logger
}

// Build opens the submission store (and Redis cache when configured) and
// assembles the pipeline stages. reg may be nil to skip metrics.
func Build(ctx context.Context, cfg *common.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{DB: db, logger: logger}

	if cfg.Database.AutoMigrate && db.Dialect() == dialect.SQLite {
		if err := db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	var subs repository.SubmissionRepository = repository.NewSubmissionRepository(db, logger)
	if cfg.Cache.RedisAddr != "" {
		rcfg := repository.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
			Prefix:   cfg.Cache.KeyPrefix,
		}
		rdb, err := repository.NewRedisClient(ctx, rcfg)
		if err != nil {
			// The cache is optional; lookups go straight to the store.
			logger.Warn("redis unavailable, hash cache disabled", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			a.redis = rdb
			subs = repository.NewCachedSubmissions(subs, rdb, rcfg, logger)
		}
	}
	a.Submissions = subs

	if reg != nil {
		a.Metrics = metrics.New(reg)
	}

	a.Text = ocr.NewExtractor(ocr.Config{
		Pdftotext:          cfg.OCR.Pdftotext,
		Pdftoppm:           cfg.OCR.Pdftoppm,
		Tesseract:          cfg.OCR.Tesseract,
		TesseractLang:      cfg.OCR.TesseractLang,
		MaxPages:           cfg.OCR.MaxPages,
		TessdataDir:        cfg.OCR.TessdataDir,
		HeicConverter:      cfg.OCR.HeicConverter,
		ScannedPDFFallback: cfg.OCR.ScannedPDFFallback,
		ArtifactCacheDir:   cfg.OCR.ArtifactCacheDir,
	}, logger)

	a.QR = qr.NewExtractor(a.Text, logger)
	a.Parser = evidence.NewParser(cfg.Names.Blocklist, cfg.Names.MaxCandidates)
	a.Gate = hashgate.New(subs, logger)
	a.Processor = pipeline.NewProcessor(logger, pipeline.Stages{
		Text:   a.Text,
		QR:     a.QR,
		Parser: a.Parser,
		Links: linkcheck.New(linkcheck.Config{
			Timeout:              cfg.LinkCheck.Timeout,
			StageBudget:          cfg.LinkCheck.StageBudget,
			Workers:              cfg.LinkCheck.Workers,
			MaxBodyBytes:         cfg.LinkCheck.MaxBodyBytes,
			UserAgent:            cfg.LinkCheck.UserAgent,
			AllowPrivateNetworks: cfg.LinkCheck.AllowPrivateNetworks,
		}, logger),
		Gate:    a.Gate,
		Metrics: a.Metrics,
	})
	return a, nil
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close(a.logger)
	}
}
