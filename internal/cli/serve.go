package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidex/slidex-agent/internal/api"
	"github.com/slidex/slidex-agent/internal/cloud"
	"github.com/slidex/slidex-agent/internal/config"
	"github.com/slidex/slidex-agent/internal/events"
	"github.com/slidex/slidex-agent/internal/export"
	"github.com/slidex/slidex-agent/internal/ffmpeg"
	"github.com/slidex/slidex-agent/internal/jobs"
	"github.com/slidex/slidex-agent/internal/logging"
	"github.com/slidex/slidex-agent/internal/opener"
	"github.com/slidex/slidex-agent/internal/preview"
	"github.com/slidex/slidex-agent/internal/slides"
	"github.com/slidex/slidex-agent/internal/tracing"
	"github.com/slidex/slidex-agent/internal/ui"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tray agent and its localhost HTTP API",
		Long: `Run the desktop agent: a system-tray menu, a job queue that runs one
extraction or export at a time, and an HTTP API on 127.0.0.1 for a local
front end. Set SLIDEX_HEADLESS=true to run without the tray.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(root)
		},
	}
}

func runServe(root *rootOptions) error {
	startTime := time.Now()

	e, err := loadEnv(root, os.Stdout, "")
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := e.cfg
	logger := e.logger
	logger.Info("starting slidex agent", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	if err := os.MkdirAll(cfg.ThumbnailDir(), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.OTLPEndpoint(), config.Version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else if tp != nil {
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			tp.Shutdown(shutdownCtx)
		}()
	}

	authToken, err := jobs.EnsureAuthToken(ctx, e.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	apiURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port())
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  SLIDEX AGENT v%-62s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    %-64s ║\n", apiURL)
	fmt.Printf("║  Auth Token: %-64s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	doctor := ffmpeg.NewCachedDoctor(e.locator, logger)
	if caps, err := doctor.Refresh(ctx); err != nil {
		logger.Warn("ffmpeg not available yet; set ffmpeg_path in settings", "error", err)
	} else {
		logger.Info("ffmpeg detected", "path", logging.SanitizePath(caps.Path), "version", caps.Version)
	}

	hub := events.NewHub(api.WebsocketOriginCheck(cfg.AllowedOrigins()), logging.WithComponent(logger, "events"))
	previews := preview.NewService(cfg.ThumbnailDir(), hub, logging.WithComponent(logger, "preview"))

	orchestrator := slides.NewOrchestrator(e.locator, slides.OutputDirs{BesideVideo: true}, previews, logging.WithComponent(logger, "slides"))
	exporter := export.NewExporter(previews, logging.WithComponent(logger, "export"))

	var open opener.Opener = opener.NewSystem(logger)
	if cfg.Headless() {
		open = opener.Nop{}
	}

	var publisher cloud.Publisher = cloud.Disabled{}
	if pc := cfg.Publish(); pc.Bucket != "" {
		p, err := cloud.NewS3Publisher(ctx, cloud.Options{
			Bucket:    pc.Bucket,
			Endpoint:  pc.Endpoint,
			Region:    pc.Region,
			AccessKey: pc.AccessKey,
			SecretKey: pc.SecretKey,
			Prefix:    pc.Prefix,
		}, logging.WithComponent(logger, "cloud"))
		if err != nil {
			logger.Warn("artifact publishing disabled", "error", err)
		} else {
			publisher = p
			logger.Info("artifact publishing enabled", "bucket", pc.Bucket)
		}
	}

	svc := jobs.NewService(e.repo, e.locator, orchestrator.Dirs(), e.settings, cfg.Threshold(), logging.WithComponent(logger, "jobs"))
	e.settings.OnChange(func(jobs.Settings) { doctor.Invalidate() })

	runner := jobs.NewRunner(jobs.RunnerDeps{
		Service:   svc,
		Repo:      e.repo,
		Extractor: orchestrator,
		Exporter:  exporter,
		Settings:  e.settings,
		Opener:    open,
		Publisher: publisher,
		Events:    hub,
		Logger:    logging.WithComponent(logger, "runner"),
	})
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Version:        config.Version,
		Service:        svc,
		Runner:         runner,
		Settings:       e.settings,
		Repository:     e.repo,
		Doctor:         doctor,
		Preview:        previews,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
		<-quitCh
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Runner: runner,
			Hub:    hub,
			Opener: open,
			APIURL: apiURL,
			Logger: logging.WithComponent(logger, "tray"),
			OnQuit: quit,
		})
		go func() {
			<-quitCh
			tray.Quit()
		}()
		tray.Run()
		quit()
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
