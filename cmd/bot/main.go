package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"DCAAdvisor/internal/cache"
	"DCAAdvisor/internal/calendar"
	"DCAAdvisor/internal/collector"
	"DCAAdvisor/internal/config"
	"DCAAdvisor/internal/fund"
	"DCAAdvisor/internal/logger"
	"DCAAdvisor/internal/metrics"
	"DCAAdvisor/internal/model"
	"DCAAdvisor/internal/notifier"
	"DCAAdvisor/internal/rebalance"
	"DCAAdvisor/internal/recorder"
	"DCAAdvisor/internal/scheduler"
	"DCAAdvisor/internal/strategy"
)

func main() {
	boot := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL")})

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("config validation")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)
	log.Info().Strs("tickers", cfg.DataSource.Tickers).Msg("DCA advisor starting")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("schedule timezone")
	}
	weekday, err := cfg.Investment.InvestmentWeekday()
	if err != nil {
		log.Fatal().Err(err).Msg("investment weekday")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.ListenAddr, log); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	// Init fetcher
	col := collector.NewCollector(
		newFetcher(cfg, m, log),
		cache.New[string, *model.PriceSeries](cfg.DataSource.CacheTTL, nil),
		cfg.DataSource.HistoryDays,
		log,
	)
	col.Failures = m

	// Init rebalance manager and restore persisted state
	mgr, err := rebalance.NewManager(cfg.Rebalance)
	if err != nil {
		log.Fatal().Err(err).Msg("init rebalance manager")
	}
	state, err := fund.LoadState(cfg.Fund.StateFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load portfolio state")
	}
	mgr.Restore(*state)
	// Configured targets win over the persisted ones.
	if len(cfg.Rebalance.Targets) > 0 {
		mgr.SetTargetAllocations(cfg.Rebalance.Targets)
	}

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	history, err := rec.ListRebalances()
	if err != nil {
		log.Warn().Err(err).Msg("load rebalance history")
	}
	mgr.LoadHistory(history)

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Config:     cfg,
		Collector:  col,
		Evaluator:  strategy.NewEvaluator(cfg.Investment),
		Schedule:   calendar.NewSchedule(weekday),
		Rebalancer: mgr,
		Notifier:   tn,
		Recorder:   rec,
		Metrics:    m,
		Location:   loc,
		Log:        log,
	})
	if err := sched.RegisterAll(); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing investment check now")
		go sched.RunInvestmentNow()
	}

	log.Info().Str("timezone", loc.String()).Msg("DCA advisor is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
}

// newFetcher builds the quote source. DRY_RUN=true swaps Yahoo for generated data.
func newFetcher(cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) collector.Fetcher {
	if os.Getenv("DRY_RUN") == "true" {
		log.Warn().Msg("dry run: using generated market data")
		return &collector.MockFetcher{Price: 100}
	}

	yahoo := collector.NewYahooFetcher(cfg.Proxy)
	source := yahoo.Name()
	m.SetCircuitBreakerState(source, collector.BreakerStateValue(gobreaker.StateClosed))
	return collector.NewBreakerFetcher(yahoo, collector.DefaultBreakerConfig, func(name string, from, to gobreaker.State) {
		m.SetCircuitBreakerState(source, collector.BreakerStateValue(to))
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
	})
}
