package serving

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/dementia-risk/pkg/common/config"
	"github.com/synaptica-ai/dementia-risk/pkg/common/database"
	"github.com/synaptica-ai/dementia-risk/pkg/common/kafka"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/assessment"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/predictor"
	"github.com/synaptica-ai/dementia-risk/pkg/storage"
)

// Swapped in tests.
var (
	openPostgres  = database.GetPostgres
	closePostgres = database.ClosePostgres
)

// NewPreprocessor loads the vocabulary table and, in training mode, the
// standardization statistics named by cfg.
func NewPreprocessor(cfg *config.Config) (*preprocess.Preprocessor, error) {
	vocab, err := preprocess.LoadVocabularies(cfg.VocabularyPath)
	if err != nil {
		return nil, err
	}
	mode, err := preprocess.ParseMode(cfg.StandardizationMode)
	if err != nil {
		return nil, err
	}
	opts := preprocess.Options{Mode: mode}
	if mode == preprocess.ModeTraining {
		stats, err := preprocess.LoadStatistics(cfg.StatisticsPath)
		if err != nil {
			return nil, err
		}
		opts.Statistics = stats
	}
	return preprocess.New(vocab, opts)
}

// ClassifierOptions maps configuration onto predictor options.
func ClassifierOptions(cfg *config.Config) predictor.Options {
	return predictor.Options{
		Backend:           cfg.ClassifierBackend,
		ArtifactDir:       cfg.ModelArtifactDir,
		ModelName:         cfg.ModelName,
		RemoteURL:         cfg.RemoteModelURL,
		RemoteTimeout:     cfg.RemoteTimeout,
		RemoteRetries:     cfg.RemoteRetries,
		OAuthTokenURL:     cfg.OAuthTokenURL,
		OAuthClientID:     cfg.OAuthClientID,
		OAuthClientSecret: cfg.OAuthClientSecret,
		OAuthScopes:       cfg.OAuthScopes,
		ONNXModelPath:     cfg.ONNXModelPath,
		ONNXLibraryPath:   cfg.ONNXLibraryPath,
		FeatureNames:      preprocess.ColumnNames(),
	}
}

// Components is everything a process needs to run assessments.
type Components struct {
	Service    *assessment.Service
	Repository *Repository
	Cache      *storage.AssessmentCache

	closers []func() error
}

// Close releases the classifier and any connections opened by Build.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Log.WithError(err).Warn("close failed")
		}
	}
}

// Build wires the preprocessor, the classifier and the optional audit log,
// result cache and event producer enabled in cfg.
func Build(ctx context.Context, cfg *config.Config, source string) (*Components, error) {
	pre, err := NewPreprocessor(cfg)
	if err != nil {
		return nil, fmt.Errorf("preprocessor: %w", err)
	}
	clf, err := predictor.New(ctx, ClassifierOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	c := &Components{}
	if closer, ok := clf.(interface{ Close() error }); ok {
		c.closers = append(c.closers, closer.Close)
	}

	opts := assessment.Options{
		Threshold: cfg.RiskThreshold,
		ModelName: cfg.ModelName,
		Backend:   cfg.ClassifierBackend,
		Source:    source,
		Metrics:   metrics.Recorder{},
	}

	if cfg.AuditLogEnabled {
		db, err := openPostgres(cfg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("audit log: %w", err)
		}
		c.closers = append(c.closers, closePostgres)
		c.Repository = NewRepository(db)
		if err := c.Repository.AutoMigrate(); err != nil {
			c.Close()
			return nil, fmt.Errorf("migrate assessment logs: %w", err)
		}
		opts.Audit = c.Repository
	}

	if cfg.ResultCacheEnabled {
		c.Cache = storage.NewAssessmentCache(database.GetRedis(cfg), cfg.ResultCacheTTL)
		c.closers = append(c.closers, database.CloseRedis)
		opts.Cache = c.Cache
	}

	if cfg.EventsEnabled {
		producer := kafka.NewProducer(cfg, cfg.AssessmentEventTopic)
		c.closers = append(c.closers, producer.Close)
		opts.Events = producer
	}

	c.Service = assessment.New(pre, clf, opts)
	logger.Log.WithFields(map[string]interface{}{
		"backend":   cfg.ClassifierBackend,
		"mode":      pre.Mode(),
		"threshold": c.Service.Threshold(),
		"audit":     cfg.AuditLogEnabled,
		"cache":     cfg.ResultCacheEnabled,
		"events":    cfg.EventsEnabled,
	}).Info("Assessment service ready")
	return c, nil
}
