package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/emandor/bookcover_service/internal/cache"
	"github.com/emandor/bookcover_service/internal/config"
	"github.com/emandor/bookcover_service/internal/cover"
	"github.com/emandor/bookcover_service/internal/db"
	"github.com/emandor/bookcover_service/internal/middleware"
	"github.com/emandor/bookcover_service/internal/model"
	"github.com/emandor/bookcover_service/internal/ocr"
	"github.com/emandor/bookcover_service/internal/ocr/tesseract"
	"github.com/emandor/bookcover_service/internal/pipeline"
	"github.com/emandor/bookcover_service/internal/rectify"
	"github.com/emandor/bookcover_service/internal/storage"
	"github.com/emandor/bookcover_service/internal/telemetry"
	"github.com/emandor/bookcover_service/internal/ws"
)

func main() {
	doMigrate := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	cfg := config.Load()
	tlog := telemetry.Init(telemetry.FromEnv(config.GetEnv))
	tlog.Info().Str("port", cfg.AppPort).Str("backend", cfg.CoverBackend).Msg("booting bookcover_service")

	var repo cover.Repository = cover.NewMemoryRepository()
	if cfg.DBDSN != "" {
		sqlxDB, err := db.Connect(cfg.DBDSN)
		if err != nil {
			tlog.Fatal().Err(err).Msg("db_connect")
		}
		defer sqlxDB.Close()
		if *doMigrate {
			if err := db.Migrate(sqlxDB); err != nil {
				tlog.Fatal().Err(err).Msg("db_migrate")
			}
			tlog.Info().Msg("migrations done")
			return
		}
		repo = cover.NewMySQLRepository(sqlxDB)
	} else if *doMigrate {
		tlog.Fatal().Msg("DB_DSN is required for -migrate")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		cancel()
		if err != nil {
			tlog.Warn().Err(err).Msg("redis_unavailable_cache_disabled")
		} else {
			rdb = c
			defer rdb.Close()
		}
	}

	backend, err := rectify.NewBackend(cfg.CoverBackend)
	if err != nil {
		tlog.Fatal().Err(err).Msg("cover_backend")
	}
	pipe, err := pipeline.New(pipeline.Options{
		MaxWidth: cfg.CoverMaxWidth,
		Quality:  cfg.CoverQuality,
	}, backend, telemetry.Component("pipeline"))
	if err != nil {
		tlog.Fatal().Err(err).Msg("pipeline_options")
	}

	store, err := storage.New(cfg.UploadDir, cfg.ProcessedDir)
	if err != nil {
		tlog.Fatal().Err(err).Msg("storage")
	}

	var reader ocr.Reader
	if cfg.CoverOCR {
		reader = ocr.NewThrottled(tesseract.Reader{Lang: cfg.OCRLang}, cfg.OCRRPS, cfg.OCRBurst)
	}

	svc := cover.NewService(cover.Deps{
		Pipeline:   pipe,
		Backend:    backend.Name,
		Store:      store,
		Repo:       repo,
		Cache:      cache.NewResultCache[model.Cover](rdb, "cover:upload:", cfg.CacheTTL),
		Workers:    cfg.CoverWorkers,
		Log:        telemetry.Component("cover"),
		BaseURL:    cfg.BaseURL,
		OCR:        reader,
		OCRTimeout: cfg.OCRTimeout,
	})
	h := cover.NewHandler(svc, telemetry.Component("cover"))

	app := fiber.New(fiber.Config{
		BodyLimit:             (cfg.AllowedMaxFileSize + 1) * 1024 * 1024,
		DisableStartupMessage: cfg.IsProd(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Recover())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.RequestLog())
	app.Use(middleware.SecureHeaders())

	app.Get("/ws", middleware.WSUpgrade(), websocket.New(ws.HandleWS))
	h.Mount(app,
		middleware.RateLimiter(cfg.UploadRateMax, time.Minute),
		middleware.FileUploadValidator(cfg),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		tlog.Info().Msg("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.AppPort); err != nil {
		tlog.Fatal().Err(err).Msg("listen")
	}
}
