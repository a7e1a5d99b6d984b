package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/IT-Nick/testpoint/internal/auth"
	"github.com/IT-Nick/testpoint/internal/autosave"
	"github.com/IT-Nick/testpoint/internal/domain/lifecycle"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/domain/questions/importer"
	questionsService "github.com/IT-Nick/testpoint/internal/domain/questions/service"
	testsService "github.com/IT-Nick/testpoint/internal/domain/tests/service"
	"github.com/IT-Nick/testpoint/internal/infra/config"
	"github.com/IT-Nick/testpoint/internal/infra/cron"
	"github.com/IT-Nick/testpoint/internal/infra/notify"
	"github.com/IT-Nick/testpoint/internal/report"
	"github.com/IT-Nick/testpoint/internal/storage"
)

type Services struct {
	testService     *testsService.TestService
	questionService *questionsService.QuestionService
}

type App struct {
	config   *config.Config
	log      *slog.Logger
	store    storage.Backend
	server   *http.Server
	notifier notify.Notifier
	auth     *auth.Authenticator
	pipeline *autosave.Pipeline
	sweeper  *cron.Sweeper
	reports  *report.Generator

	Services
}

// NewApp читает конфигурацию и поднимает все зависимости
func NewApp(ctx context.Context, configPath string) (*App, error) {
	configImpl, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config.LoadConfig: %w", err)
	}
	log := NewLogger(configImpl, os.Stdout)

	store, err := InitDatabase(ctx, configImpl, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if configImpl.TelegramBot.Token != "" {
		tg, err := notify.NewTelegram(configImpl.TelegramBot.Token, configImpl.TelegramBot.ChatID, log)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
		notifier = tg
	}

	return New(configImpl, store, notifier, log), nil
}

// New собирает приложение из готовых зависимостей
func New(cfg *config.Config, store storage.Backend, notifier notify.Notifier, log *slog.Logger) *App {
	app := &App{
		config:   cfg,
		log:      log,
		store:    store,
		notifier: notifier,
		auth:     auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	}
	app.initServices()
	return app
}

// Функция для инициализации сервисов
func (app *App) initServices() {
	policy := lifecycle.Policy{
		OwnerCanRevert: *app.config.Lifecycle.OwnerCanRevert,
		CascadeDelete:  *app.config.Lifecycle.CascadeDelete,
	}

	app.testService = testsService.NewTestService(app.store, testsService.Options{
		Policy:          policy,
		MaxAttempts:     app.config.Lifecycle.MaxTxRetries,
		BulkConcurrency: app.config.Bulk.Concurrency,
		Notifier:        app.notifier,
		Logger:          app.log.With("component", "tests"),
	})
	app.questionService = questionsService.NewQuestionService(app.store, questionsService.Options{
		MaxAttempts: app.config.Lifecycle.MaxTxRetries,
		Import:      importer.Options{OneBased: *app.config.Import.OneBasedIndex},
		Logger:      app.log.With("component", "questions"),
	})

	// Права на вопрос проверяются при обращении к черновику, сохраняет система
	app.pipeline = autosave.New(
		autosave.ServiceSaver{Service: app.questionService, Actor: model.SystemActor},
		autosave.Options{
			Debounce: app.config.Autosave.Debounce,
			Logger:   app.log.With("component", "autosave"),
		},
	)
	app.reports = report.NewGenerator(report.Options{FontPath: app.config.Report.FontPath})
	app.sweeper = cron.New(app.testService, app.config.Lifecycle.SweepInterval, app.log.With("component", "sweeper"))
}

// ListenAndServe запускает планировщик и HTTP-сервер и останавливает их при отмене ctx
func (app *App) ListenAndServe(ctx context.Context) error {
	if err := app.sweeper.Start(); err != nil {
		return err
	}

	app.server = &http.Server{
		Addr:         app.config.Addr(),
		Handler:      app.Router(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("http server started", "addr", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownErr := app.Shutdown()
	if serveErr != nil {
		return fmt.Errorf("failed to start HTTP server: %w", serveErr)
	}
	return shutdownErr
}

// Shutdown останавливает сервер, сохраняет черновики и закрывает хранилище
func (app *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown http server: %w", err))
		}
	}
	app.sweeper.Stop()

	if err := app.pipeline.Flush(ctx); err != nil {
		app.log.Warn("unsaved drafts on shutdown", "error", err)
	}
	app.pipeline.Close()

	if tg, ok := app.notifier.(*notify.Telegram); ok {
		tg.Close()
	}
	if err := app.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}

	app.log.Info("app stopped")
	return errors.Join(errs...)
}
