package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"weatheretl/pkg/batch/util/logger"
	"weatheretl/weather/app"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

//go:embed resources/job.yaml
var embeddedJSL []byte

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C や SIGTERM で実行中のジョブを中断する
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("シグナル '%v' を受信しました。ジョブの停止を試みます...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	exitCode := app.RunApplication(ctx, os.Args[1:], envFilePath, embeddedConfig, embeddedJSL)
	cancel()
	os.Exit(exitCode)
}
