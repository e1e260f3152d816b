// Command engine is the process entry point for the market signal
// detection engine: it loads configuration, wires the data source,
// stores, formatter, detection loop, maintenance job and admin API
// together, and shuts down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"market-signal-engine/internal/adminapi"
	"market-signal-engine/internal/config"
	"market-signal-engine/internal/cooldown"
	"market-signal-engine/internal/datasource"
	"market-signal-engine/internal/detection"
	"market-signal-engine/internal/history"
	"market-signal-engine/internal/localize"
	"market-signal-engine/internal/maintenance"
	"market-signal-engine/internal/notify"
	"market-signal-engine/internal/rules"
	sig "market-signal-engine/internal/signal"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
		envFile    = flag.String("env", "", "Path to environment file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	source := datasource.New(cfg.Database.URL, cfg.Database.QueryTimeout)
	defer source.Close()

	cooldowns, err := cooldown.New(cfg.Database.CooldownDBPath)
	if err != nil {
		log.Fatalf("failed to open cooldown store: %v", err)
	}
	defer cooldowns.Close()

	hist, err := history.New(cfg.Database.HistoryDBPath)
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	defer hist.Close()

	formatter := localize.New(cfg.Localize.Language)

	ruleParams := rules.WithOverrides(rules.Params{
		PriceSurgePct:         cfg.Detection.RuleThresholds.PriceSurgePct,
		PriceDumpPct:          cfg.Detection.RuleThresholds.PriceDumpPct,
		VolumeSpikeMultiple:   cfg.Detection.RuleThresholds.VolumeSpikeMultiple,
		TakerBuyDominance:     cfg.Detection.RuleThresholds.TakerBuyDominance,
		TakerSellDominance:    cfg.Detection.RuleThresholds.TakerSellDominance,
		OISurgePct:            cfg.Detection.RuleThresholds.OISurgePct,
		OIDumpPct:             cfg.Detection.RuleThresholds.OIDumpPct,
		TopTraderExtremeLong:  cfg.Detection.RuleThresholds.TopTraderExtremeLong,
		TopTraderExtremeShort: cfg.Detection.RuleThresholds.TopTraderExtremeShort,
	})

	engine, err := detection.Instance(detection.Params{
		Source:          source,
		Cooldowns:       cooldowns,
		History:         hist,
		Formatter:       formatter,
		Symbols:         cfg.Detection.Symbols,
		CooldownSeconds: cfg.Cooldown.Seconds,
		RuleParams:      ruleParams,
	})
	if err != nil {
		log.Fatalf("failed to construct detection engine: %v", err)
	}

	// Notification delivery (Telegram, etc.) is an external subscriber's
	// responsibility; this process logs what it emits and, when email is
	// configured below, also mails it.
	engine.RegisterCallback(func(s sig.Signal, message string) {
		log.Printf("signal %s/%s %s: %s", s.Symbol, s.SignalType, s.Direction, message)
	})

	emailNotifier := notify.NewEmailNotifier(notify.EmailConfig{
		Enabled:     cfg.Email.Enabled,
		SMTPHost:    cfg.Email.SMTPHost,
		SMTPPort:    cfg.Email.SMTPPort,
		Username:    cfg.Email.Username,
		Password:    cfg.Email.Password,
		FromName:    cfg.Email.FromName,
		FromAddress: cfg.Email.FromAddress,
		Recipients:  cfg.Email.Recipients,
	})
	if emailNotifier.IsConfigured() {
		engine.RegisterCallback(func(s sig.Signal, message string) {
			if err := emailNotifier.Deliver(s, message); err != nil {
				log.Printf("email notification failed for %s/%s: %v", s.Symbol, s.SignalType, err)
			}
		})
	}

	maint := maintenance.New(cooldowns, hist, cfg.Cooldown.MaxAge, cfg.Retention.HistoryDays)
	if err := maint.Start(cfg.Retention.CleanupSchedule); err != nil {
		log.Fatalf("failed to start maintenance job: %v", err)
	}
	defer maint.Stop()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	admin := adminapi.New(engine, hist, maint)
	admin.Register(router)

	srv := &http.Server{
		Addr:    cfg.AdminAddress(),
		Handler: router,
	}

	go func() {
		log.Printf("admin API listening on %s", cfg.AdminAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("admin API server failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx, cfg.Detection.TickInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Database.QueryTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin API shutdown error: %v", err)
	}

	log.Printf("shutdown complete")
}
