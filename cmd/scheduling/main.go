package main

import (
	"clinicslots/internal/scheduling/events"
	"clinicslots/internal/scheduling/handler"
	"clinicslots/internal/scheduling/repository"
	"clinicslots/internal/scheduling/service"
	"clinicslots/internal/scheduling/store"
	"clinicslots/internal/scheduling/validator"
	"clinicslots/pkg/app"
	"clinicslots/pkg/clock"
	"clinicslots/pkg/config"
	"clinicslots/pkg/kafka"
	kafka_config "clinicslots/pkg/kafka/config"
	kafka_middleware "clinicslots/pkg/kafka/middleware"
)

const ServiceName = "scheduling"

func main() {
	cfg := config.Load(ServiceName)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	// Log all configuration values
	cfg.LogConfiguration()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	cfg.SetStore()
	if cfg.IdempotencyStore == config.IdempotencyRedis {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Scheduling service")
	slotStore, err := store.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build store", "error", err)
	}

	publisher, closePublisher := initPublisher(cfg, kafkaCfg)
	schedulingService := initServices(cfg, slotStore, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(slotStore, cfg.Log),
		handler.NewSchedulingHandler(schedulingService, cfg.Log),
	)
	serverApp.OnShutdown(closePublisher)
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.Run()
}

func initPublisher(cfg *config.Config, kafkaCfg *kafka_config.Config) (events.Publisher, func()) {
	if !kafkaCfg.Enabled {
		cfg.Log.Info("Kafka disabled; hold events are not published")
		return events.NoopPublisher{}, func() {}
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	metrics := kafka_middleware.NewPublishMetrics()
	producer.Use(metrics.Middleware())
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Kafka producer initialized", "topic", producer.Topic())
	return events.NewKafkaPublisher(producer), func() {
		snap := metrics.Snapshot()
		cfg.Log.Info("Kafka producer stats",
			"published", snap.Published,
			"failed", snap.Failed,
			"avg_publish_duration", snap.AvgDuration,
		)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

func initServices(cfg *config.Config, slotStore repository.Store, publisher events.Publisher) service.SchedulingService {
	schedulingValidator := validator.NewSchedulingValidator(cfg.Log)
	schedulingService := service.NewSchedulingService(
		slotStore,
		schedulingValidator,
		publisher,
		clock.NewSystem(),
		service.ParamsFromConfig(cfg),
		cfg.Log,
	)

	cfg.Log.Info("Scheduling service initialized",
		"store_driver", cfg.StoreDriver,
		"slot_granularity", cfg.SlotGranularity,
		"min_lead_time", cfg.MinLeadTime,
		"timezone", cfg.SchedulingTimezone,
	)
	return schedulingService
}
