package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/database"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/logger"
	mqttcommon "github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/mqtt"
	rediscommon "github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/redis"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/config"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/consumer"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/notify"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/publisher"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/repository"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/request"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/service"
)

func main() {
	// 1. configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "nvr-deviceclient")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. device registry
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// 4. Redis streams and health cache
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rediscommon.Close(redisClient)

	// 5. MQTT requests and live-event topic
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, log)
	if err != nil {
		log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer mqttClient.Disconnect()

	var notifier service.PopUpNotifier
	if cfg.Push.GatewayURL != "" {
		notifier = notify.NewPushNotifier(cfg.Push.GatewayURL, cfg.Push.Timeout, log)
	}

	factory := request.NewTCPFactory(request.TCPOptions{
		DialTimeout:   cfg.DeviceClient.DialTimeout,
		PollInterval:  cfg.DeviceClient.PollInterval,
		EventInterval: cfg.DeviceClient.EventInterval,
	}, log)

	deviceService := service.NewDeviceService(
		cfg,
		factory,
		repository.NewDeviceRepository(db, log),
		publisher.NewPublisher(cfg, redisClient, mqttClient, log),
		notifier,
		log,
	)
	requestConsumer := consumer.NewMQTTConsumer(cfg.Topics.Request, cfg.MQTT.QoS, mqttClient, deviceService, log)

	// 6. start, then wait for a signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := deviceService.Start(ctx); err != nil {
		log.Fatal("Failed to start device service", zap.Error(err))
	}

	consumerErrChan := make(chan error, 1)
	go func() {
		if err := requestConsumer.Start(ctx); err != nil {
			consumerErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-consumerErrChan:
		log.Error("Consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	requestConsumer.Stop(shutdownCtx)
	cancel()
	if err := deviceService.Stop(shutdownCtx); err != nil {
		log.Error("Device service did not stop cleanly", zap.Error(err))
	}

	log.Info("NVR device client service stopped")
}
