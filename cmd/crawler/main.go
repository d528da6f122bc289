package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"telegram-search/internal/app"
	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
)

func main() {
	// envPath определяет расположение .env с секретами и общими настройками.
	envPath := flag.String("env", ".env", "path to .env file")
	tomlPath := flag.String("config", "configs/app.toml", "path to config file")
	mode := flag.String("mode", "historical", "crawl mode: historical, realtime or both")
	limit := flag.Int("limit", 0, "max messages per channel in historical mode (0 = unlimited)")
	importPath := flag.String("import", "", "index a static export (json/csv) instead of crawling")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*envPath, *tomlPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	level := "info"
	if *debug || cfg.Debug {
		level = "debug"
	}
	logger.Init(level)
	defer logger.Sync()
	if cfg.Log.File != "" {
		logger.EnableFile(logger.FileConfig{
			Path:       cfg.Log.File,
			Level:      cfg.Log.FileLevel,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	}
	for _, msg := range cfg.Warnings() {
		logger.Warn(msg)
	}

	// Контекст с обработкой системных сигналов (Ctrl+C/SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Импорт статического экспорта не требует учётных данных Telegram.
	if *importPath != "" {
		crawler, newErr := app.NewCrawler(cfg)
		if newErr != nil {
			logger.Fatal("crawler init failed", zap.Error(newErr))
		}
		if runErr := crawler.RunImport(ctx, *importPath); runErr != nil {
			logger.Fatal("import failed", zap.Error(runErr))
		}
		return
	}

	if err = cfg.ValidateTelegram(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	crawlMode, err := app.ParseMode(*mode)
	if err != nil {
		logger.Fatal("invalid mode", zap.Error(err))
	}

	crawler, err := app.NewCrawler(cfg)
	if err != nil {
		logger.Fatal("crawler init failed", zap.Error(err))
	}

	// Запускаем основной цикл; блокируется до завершения обхода или shutdown.
	if err = crawler.Run(ctx, crawlMode, *limit); err != nil && ctx.Err() == nil {
		logger.Fatal("crawler run failed", zap.Error(err))
	}
	logger.Info("Graceful shutdown complete")
}
