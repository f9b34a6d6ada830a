package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"clinicslots/internal/reclaim"
	"clinicslots/internal/scheduling/events"
	"clinicslots/internal/scheduling/store"
	"clinicslots/pkg/clock"
	"clinicslots/pkg/config"
	"clinicslots/pkg/kafka"
	kafka_config "clinicslots/pkg/kafka/config"
	kafka_middleware "clinicslots/pkg/kafka/middleware"
	"clinicslots/pkg/lock"
)

const ServiceName = "reclaimer"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	cfg.LogConfiguration()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	cfg.SetStore()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	slotStore, err := store.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build store", "error", err)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if kafkaCfg.Enabled {
		producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		}
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer)
	}

	sweeper := reclaim.NewSweeper(slotStore, publisher, clock.NewSystem(), cfg.ReclaimBatchSize, cfg.Log)
	job := reclaim.NewJob(sweeper, lock.NewLocker(cfg.Client.Redis, "clinicslots:lease:"), cfg.ReclaimLeaseTTL, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := job.Schedule(ctx, cfg.ReclaimSchedule)
	if err != nil {
		cfg.Log.Fatal("Invalid reclaim schedule", "error", err, "schedule", cfg.ReclaimSchedule)
	}

	cfg.Log.Info("Starting reclaimer", "schedule", cfg.ReclaimSchedule, "lease_ttl", cfg.ReclaimLeaseTTL)
	scheduler.Start()

	<-ctx.Done()
	cfg.Log.Info("Shutdown signal received, waiting for running sweep")
	<-scheduler.Stop().Done()
	cfg.Log.Info("Reclaimer stopped")
}
