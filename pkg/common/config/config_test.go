package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8090", cfg.ServerPort)
	assert.Equal(t, 0.5, cfg.RiskThreshold)
	assert.Equal(t, "artifact", cfg.ClassifierBackend)
	assert.Equal(t, "record", cfg.StandardizationMode)
	assert.False(t, cfg.AuditLogEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("RISK_THRESHOLD", "0.6")
	t.Setenv("AUDIT_LOG_ENABLED", "true")
	t.Setenv("RESULT_CACHE_TTL", "90m")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0.6, cfg.RiskThreshold)
	assert.True(t, cfg.AuditLogEnabled)
	assert.Equal(t, 90*time.Minute, cfg.ResultCacheTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}
