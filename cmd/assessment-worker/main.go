package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/synaptica-ai/dementia-risk/pkg/common/config"
	"github.com/synaptica-ai/dementia-risk/pkg/common/kafka"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/serving"
)

func main() {
	logger.Init("assessment-worker")
	cfg := config.Load()
	// Results of queued requests are only observable through the event stream.
	cfg.EventsEnabled = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	components, err := serving.Build(ctx, cfg, "assessment-worker")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize assessment worker")
	}
	defer components.Close()

	consumer := kafka.NewConsumer(cfg, cfg.AssessmentRequestTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	logger.Log.WithFields(map[string]interface{}{
		"topic":   cfg.AssessmentRequestTopic,
		"group":   cfg.KafkaGroupID,
		"brokers": cfg.KafkaBrokers,
	}).Info("Assessment Worker started")

	if err := consumer.Consume(ctx, serving.EventHandler(components.Service)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("Consumer stopped")
	}

	logger.Log.Info("Assessment Worker stopped")
}
