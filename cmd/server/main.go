package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telegram-chat-stats/internal/adapters/parser"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/core/services"
	applog "telegram-chat-stats/internal/log"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/server"
	"telegram-chat-stats/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка и валидация конфигурации
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger := applog.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.SetDefault(logger)

	// 3. Контекст приложения отменяется по сигналу и останавливает тикеры очистки
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Инициализация зависимостей
	taskStore := server.NewTaskStore(server.DefaultTaskTTL)
	cacheStore := cache.NewCacheStore()
	loader := services.NewLoader(parser.NewJsonParser(),
		services.WithWorkers(cfg.Processing.Workers),
		services.WithLogger(logger),
	)
	builder := services.NewReportBuilder(services.WithReportLogger(logger))
	processor := usecase.NewProcessChatsUseCase(cfg, loader, builder, cacheStore, logger)

	// 5. Создание HTTP-сервера
	srv, err := server.New(appCtx, cfg, processor, taskStore, cacheStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 6. Запуск сервера и graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-appCtx.Done():
	}

	logger.Info("Signal received, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	<-serverErr
	logger.Info("Application exited gracefully")
	return nil
}
