package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"taskboard/internal/api"
	"taskboard/internal/bot"
	"taskboard/internal/config"
	"taskboard/internal/controller"
	"taskboard/internal/logger"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	settings := repository.NewSettingRepository(db)
	tokens := repository.NewTokenStore(settings, cfg.Auth.TokenKey)

	client := api.NewClient(api.Options{
		BaseURL:     cfg.API.BaseURL,
		TasksPath:   cfg.API.TasksPath,
		Timeout:     cfg.API.Timeout,
		TokenPrefix: cfg.Auth.TokenPrefix,
	}, tokens, log)
	taskSvc := service.NewTaskService(client)

	sessions := service.NewSessionService(func() *controller.Controller {
		return controller.New(taskSvc, log, controller.WithErrorTTL(cfg.Session.ErrorTTL))
	}, cfg.Session.IdleTimeout, log)

	telegramBot, err := bot.New(cfg.TelegramToken, sessions, tokens, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create bot")
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.Session.SweepInterval, func() {
		sessions.SweepIdle(time.Now())
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule session sweep")
	}
	scheduler.Start()

	botCtx, stopBot := context.WithCancel(context.Background())
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := telegramBot.Start(botCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("bot stopped with error")
		}
	}()

	log.Info().
		Str("env", cfg.Env).
		Str("api", cfg.API.BaseURL).
		Msg("taskboard bot started")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"bot": func(ctx context.Context) error {
				stopBot()
				select {
				case <-botDone:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
			"scheduler": func(ctx context.Context) error {
				scheduler.Stop()
				return nil
			},
			"sessions": func(ctx context.Context) error {
				sessions.CloseAll()
				return nil
			},
			"database": func(ctx context.Context) error {
				return repository.Close(db)
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("shutdown complete")
	os.Exit(exitCode)
}
