package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ability-server/internal/catalog"
	"ability-server/internal/config"
	"ability-server/internal/engine"
	"ability-server/internal/infrastructure/storage"
	"ability-server/internal/network"
	"ability-server/internal/server"
	"ability-server/internal/version"
	"ability-server/pkg/logger"
)

func main() {
	// 1. Парсинг конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Config error: ", err)
	}

	// Флаги перекрывают окружение
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "World seed")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Path to catalog YAML (empty for built-in)")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	flag.Parse()

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Log.Info("Starting Ability Server...")
	logger.Log.Info(version.String())
	logger.Log.Infof("🎲 Using Master Seed: %d", cfg.Seed)

	// 2. Каталог
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Log.Fatal("Catalog error: ", err)
	}

	// 3. Сохранения ("none" - без сохранений)
	var store storage.Store
	if cfg.SaveBackend != "none" {
		store, err = storage.Open(cfg.SaveBackend, cfg.SaveDir)
		if err != nil {
			logger.Log.Fatal("Storage error: ", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Log.WithError(err).Warn("Storage close failed")
			}
		}()
	}

	// Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Инстанс мира
	inst := engine.NewInstance(cfg, cat, cfg.Tunables(), store, network.NewBroadcaster())
	if err := inst.Prepare(ctx); err != nil {
		logger.Log.Fatal("Load save failed: ", err)
	}

	loopDone := make(chan struct{})
	go func() {
		inst.Run(ctx)
		close(loopDone)
	}()

	// 5. Горячая перезагрузка каталога
	if cfg.WatchCatalog && cfg.CatalogPath != "" {
		go watchCatalog(ctx, cfg.CatalogPath, inst)
	}

	// 6. Запуск сервера
	srv := server.New(inst, cfg.Port)
	if err := srv.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("Server error")
		stop()
	}

	logger.Log.Info("Shutting down...")

	// Run сохраняет мир при выходе
	<-loopDone
	logger.Log.Info("Done.")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func watchCatalog(ctx context.Context, path string, inst *engine.Instance) {
	w, err := catalog.NewWatcher(path)
	if err != nil {
		logger.Log.WithError(err).Error("Catalog watcher failed")
		return
	}
	defer w.Close()

	log := logger.For("catalog")
	log.WithField("path", path).Info("Watching catalog")

	for {
		select {
		case <-ctx.Done():
			return
		case cat := <-w.Updates:
			inst.ReloadCatalog(cat)
			log.Info("Catalog reloaded")
		case err := <-w.Errors:
			log.WithError(err).Warn("Catalog rejected, keeping previous")
		}
	}
}
