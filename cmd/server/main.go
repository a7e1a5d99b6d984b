package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app2 "github.com/IT-Nick/testpoint/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	fmt.Println("app starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	app, err := app2.NewApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start app: %v\n", err)
		os.Exit(1)
	}

	if err := app.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "app stopped with error: %v\n", err)
		os.Exit(1)
	}
}
