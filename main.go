package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"ringan/utils"
	"ringan/utils/log"

	"github.com/joho/godotenv"
)

func main() {
	envLoaded = godotenv.Load() == nil

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	log.Sync()

	if err != nil {
		if !errors.Is(err, errReported) {
			utils.PrintError(err.Error())
		}
		os.Exit(1)
	}
}
