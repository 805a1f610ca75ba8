package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unicms/backend/internal/config"
	"unicms/backend/internal/db"
	"unicms/backend/internal/fileutil"
	internalhttp "unicms/backend/internal/http"
	"unicms/backend/internal/handler"
	"unicms/backend/internal/network"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/scheduler"
	"unicms/backend/internal/service"
	"unicms/backend/internal/traffic"
	"unicms/backend/pkg/logger"
	"unicms/backend/pkg/snowflake"
)

const (
	sweepInterval      = time.Minute
	registrationLimit  = 3
	registrationWindow = time.Minute
)

func main() {
	cfg := config.Load()
	logger.Init(logger.ParseLevel(cfg.LogLevel))

	if cfg.JWTSecret == "" {
		logger.Error("UNICMS_JWT_SECRET is required")
		os.Exit(1)
	}

	if err := snowflake.Init(1); err != nil {
		logger.Error("failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	if err := fileutil.EnsureDirectories(cfg.ImagesDir(), cfg.TempImagesDir(), cfg.TempUploadsDir()); err != nil {
		logger.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	articleRepo := repository.NewArticleRepository(database)
	registrationRepo := repository.NewRegistrationRepository(database)

	clientFactory := network.NewClientFactory(os.Getenv("UNICMS_PROXY_URL"))

	var captcha service.RecaptchaVerifier = service.NewNoopVerifier()
	if cfg.RecaptchaEnabled {
		captcha = service.NewRecaptchaVerifier(cfg.RecaptchaSecret, clientFactory)
	}

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, cfg.BcryptCost)
	imageService := service.NewImageService(cfg.ImagesDir(), cfg.TempImagesDir(), cfg.TempUploadsDir(), articleRepo)
	articleService := service.NewArticleService(articleRepo, categoryRepo, imageService)
	categoryService := service.NewCategoryService(categoryRepo)
	registrationService := service.NewRegistrationService(registrationRepo, captcha)

	guard := traffic.NewGuard(nil)
	throttle := traffic.NewThrottle(registrationLimit, registrationWindow, nil)

	e := internalhttp.NewRouter(
		handler.NewImageHandler(imageService),
		handler.NewStudentHandler(registrationService),
		handler.NewAuthHandler(authService, cfg.JWTExpiry, cfg.IsProduction()),
		handler.NewArticleHandler(articleService),
		handler.NewCategoryHandler(categoryService),
		authService,
		guard,
		throttle,
		cfg.StaticDir,
		cfg.IsProduction(),
	)

	sweeper := scheduler.New(guard, throttle, cfg.TempUploadsDir(), sweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "env", cfg.Env)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
