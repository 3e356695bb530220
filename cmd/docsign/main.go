package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alinme/docsign/internal/audit"
	"github.com/alinme/docsign/internal/blob"
	"github.com/alinme/docsign/internal/config"
	"github.com/alinme/docsign/internal/mail"
	"github.com/alinme/docsign/internal/server"
	"github.com/alinme/docsign/internal/signing"
	"github.com/alinme/docsign/internal/store"
	"github.com/alinme/docsign/pkg/logger"
)

var (
	version   = "dev"     // set by build flags
	buildTime = "unknown" // set by build flags
)

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.Info("starting docsign", "version", version, "build_time", buildTime, "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	blobs, err := blob.NewMinioStore(ctx, blob.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return err
	}

	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.MailEnabled() {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		slog.Warn("no SMTP relay configured, invitations disabled")
	}

	links := server.NewLinkIssuer(cfg.LinkSecret, cfg.LinkTTL, cfg.PublicURL)
	svc := signing.NewService(st, blobs, signing.Options{
		Audit:      audit.NewDBSink(st.DB()),
		Mailer:     mailer,
		Link:       links.URL,
		PresignTTL: cfg.PresignTTL,
		MaxPDFSize: cfg.MaxFileSize,
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.New(svc, links).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "address", cfg.Address())
		errCh <- srv.ListenAndServe()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		return err
	}
}
