package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fpa-bridge/internal/config"
	"fpa-bridge/internal/logging"
	"fpa-bridge/internal/web"
)

func main() {
	var configPath string
	var summaryPath string
	flag.StringVar(&configPath, "config", "./fpa-bridge.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of a capture file and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printCaptureSummary(os.Stdout, summaryPath); err != nil {
			log.Fatalf("capture summary failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	logCloser, err := logging.Setup(cfg.Log, logs)
	if err != nil {
		log.Fatalf("log setup failed: %v", err)
	}
	defer logCloser.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, logs)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	log.Printf("fpa-bridge starting")
	log.Printf("input source=%s outputs=%v web=%s", cfg.Input.Source, a.outputs, cfg.Web.Listen)

	if err := a.run(ctx); err != nil {
		log.Printf("fpa-bridge stopped: %v", err)
	}
	log.Printf("fpa-bridge stopping")
}
