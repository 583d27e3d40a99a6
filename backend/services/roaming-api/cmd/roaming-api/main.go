package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/libs/logging"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/app"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("roaming-api")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init roaming api", zap.Error(err))
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("roaming api stopped with error", zap.Error(err))
	}
}
