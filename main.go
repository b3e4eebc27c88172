// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LilVoxy/campus_lostfound/config"
	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/database"
	"github.com/LilVoxy/campus_lostfound/logger"
	"github.com/LilVoxy/campus_lostfound/realtime"
	"github.com/LilVoxy/campus_lostfound/routes"
	"github.com/LilVoxy/campus_lostfound/scheduler"
	"github.com/LilVoxy/campus_lostfound/websocket"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "lostfound",
		Short:         "Сервис бюро находок кампуса: объявления и живой список контактов",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к файлу конфигурации (yaml, json, toml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Запустить HTTP и WebSocket сервер",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Создать таблицы в базе данных",
			RunE:  runMigrate,
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// setup читает конфигурацию, создает логгер и открывает базу
func setup() (config.Config, *logrus.Logger, func(), *database.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}

	log, closeLog, err := logger.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}

	store, err := database.Open(cfg.Database, log)
	if err != nil {
		_ = closeLog()
		return config.Config{}, nil, nil, nil, fmt.Errorf("не удалось инициализировать базу данных: %w", err)
	}

	cleanup := func() {
		// Закрываем соединение с базой данных
		if err := store.Close(); err != nil {
			log.Errorf("❌ Ошибка закрытия соединения с БД: %v", err)
		} else {
			log.Info("✅ Соединение с БД закрыто")
		}
		_ = closeLog()
	}
	return cfg, log, cleanup, store, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, log, cleanup, store, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("✅ Таблицы созданы")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, cleanup, store, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	workers, cancelWorkers := context.WithCancel(context.Background())
	defer func() {
		cancelWorkers()
		wg.Wait()
	}()

	// Лента изменений строк
	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(workers)
	}()

	// Менеджер WebSocket
	wsManager := websocket.NewManager(cfg.WebSocket, cfg.HTTP.AllowedOrigins, contacts.NewFetcher(store, log), hub, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		wsManager.Run(workers)
	}()

	// Периодический пересчет контактов
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.StartResync(workers, cfg.Resync.Interval, wsManager, log); err != nil {
			log.Errorf("❌ Ошибка планировщика: %v", err)
		}
	}()

	router := mux.NewRouter()
	routes.SetupRoutes(router, routes.NewAPI(store, hub, log), wsManager, cfg.HTTP.AllowedOrigins)

	// Настраиваем сервер
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("✅ Сервер запущен на %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Ожидаем сигнал завершения
	select {
	case <-ctx.Done():
		log.Warn("⚠️ Получен сигнал завершения, закрываем соединения...")
	case err := <-serveErr:
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("❌ Ошибка остановки сервера: %v", err)
	}

	cancelWorkers()
	wg.Wait()

	log.Info("👋 Сервер остановлен")
	return nil
}
