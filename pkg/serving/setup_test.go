package serving

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dementia-risk/pkg/common/config"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		VocabularyPath:      "../../configs/vocabularies.yaml",
		StandardizationMode: "record",
		ClassifierBackend:   "artifact",
		RiskThreshold:       0.5,
		ModelArtifactDir:    "../../models",
		ModelName:           "dementia",
	}
}

func TestNewPreprocessorTrainingMode(t *testing.T) {
	cfg := testConfig()
	cfg.StandardizationMode = "training"
	cfg.StatisticsPath = "../../configs/statistics.example.yaml"

	pre, err := NewPreprocessor(cfg)
	require.NoError(t, err)
	assert.Equal(t, preprocess.ModeTraining, pre.Mode())

	cfg.StatisticsPath = "does-not-exist.yaml"
	_, err = NewPreprocessor(cfg)
	assert.Error(t, err)
}

func TestBuildWithBundledArtifact(t *testing.T) {
	c, err := Build(context.Background(), testConfig(), "test")
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Repository)
	assert.Nil(t, c.Cache)

	h, err := NewHandler(c.Service, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, h)

	pre := c.Service.Preprocessor()
	vocab := pre.Vocabularies()
	rec := preprocess.Record{}
	for _, col := range preprocess.Columns() {
		if v, ok := vocab.Lookup(col.Name); ok {
			rec[col.Name] = preprocess.String(v.Values()[0])
			continue
		}
		rec[col.Name] = preprocess.String(formDefaults[col.Name])
	}
	result := c.Service.Assess(context.Background(), rec)
	assert.True(t, result.Succeeded(), result.Message)
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.ClassifierBackend = "quantum"
	_, err := Build(context.Background(), cfg, "test")
	assert.Error(t, err)
}

func TestBuildClosesPostgresWhenMigrationFails(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	closed := 0
	origOpen, origClose := openPostgres, closePostgres
	openPostgres = func(*config.Config) (*gorm.DB, error) { return db, nil }
	closePostgres = func() error { closed++; return nil }
	t.Cleanup(func() { openPostgres, closePostgres = origOpen, origClose })

	cfg := testConfig()
	cfg.AuditLogEnabled = true
	_, err = Build(context.Background(), cfg, "test")

	assert.ErrorContains(t, err, "migrate assessment logs")
	assert.Equal(t, 1, closed)
}
