// Command giftreportd runs the gift membership reporting backend: the admin
// HTTP API (report, CSV export, bulk resend) and the in-process scheduler
// for reminder ticks and the weekly digest.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/averos/go-gift-report/internal/config"
	"github.com/averos/go-gift-report/internal/domain"
	httpapi "github.com/averos/go-gift-report/internal/http"
	"github.com/averos/go-gift-report/internal/mail"
	"github.com/averos/go-gift-report/internal/observability"
	"github.com/averos/go-gift-report/internal/repo"
	"github.com/averos/go-gift-report/internal/report"
	"github.com/averos/go-gift-report/internal/scheduler"
	"github.com/averos/go-gift-report/internal/services"
	"github.com/averos/go-gift-report/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; absence of .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Outbound mail: real SMTP when configured, log-only otherwise.
	smtpCfg := mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: sysutil.FirstNonEmpty(cfg.SMTP.FromName, cfg.SiteName),
	}
	var mailer mail.Mailer
	if smtpCfg.Enabled() {
		mailer = mail.NewSMTPMailer(smtpCfg)
	} else {
		log.Warn().Msg("SMTP not configured; emails will be logged, not sent")
		mailer = mail.NewLogMailer(log.Logger)
	}
	dispatcher := mail.NewDispatcher(mailer, cfg.Reminder.MailPerSecond, log.Logger)

	currency := report.CurrencySettings{
		Code:        cfg.Currency.Code,
		Symbol:      cfg.Currency.Symbol,
		SymbolAfter: cfg.Currency.SymbolAfter,
		ZeroDecimal: cfg.Currency.ZeroDecimal,
		Locale:      language.Make(cfg.Currency.Locale),
	}

	schedule, err := domain.ParseSchedule(cfg.Reminder.Schedule)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Reminder.Schedule).Msg("invalid REMINDER_SCHEDULE")
	}
	reminderCfg := domain.ReminderConfig{
		Enabled:  cfg.Reminder.Enabled,
		Schedule: schedule,
		Subject:  cfg.Reminder.Subject,
		Body:     cfg.Reminder.Body,
	}

	reportSvc := &services.ReportService{DB: db, Currency: currency}
	exportSvc := &services.ExportService{DB: db, Currency: currency}
	reminderSvc := &services.ReminderService{
		DB:            db,
		Dispatcher:    dispatcher,
		SiteName:      cfg.SiteName,
		RedeemBaseURL: cfg.RedeemBaseURL,
		Log:           log.With().Str("component", "reminders").Logger(),
	}
	summarySvc := &services.SummaryService{
		DB:         db,
		Dispatcher: dispatcher,
		Currency:   currency,
		SiteName:   cfg.SiteName,
		AdminEmail: cfg.AdminEmail,
		Log:        log.With().Str("component", "digest").Logger(),
	}

	sched := &scheduler.Scheduler{
		Reminders:        reminderSvc,
		Summary:          summarySvc,
		ReminderCfg:      reminderCfg,
		ReminderInterval: cfg.Reminder.Interval,
		DigestEnabled:    cfg.Reminder.DigestEnabled,
		DigestInterval:   cfg.Reminder.DigestInterval,
		Log:              log.With().Str("component", "scheduler").Logger(),
	}
	go sched.Run(ctx)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Services{
		Report:      reportSvc,
		Export:      exportSvc,
		Reminder:    reminderSvc,
		Summary:     summarySvc,
		ReminderCfg: reminderCfg,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("giftreportd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
