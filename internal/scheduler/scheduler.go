package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"DCAAdvisor/internal/calendar"
	"DCAAdvisor/internal/collector"
	"DCAAdvisor/internal/config"
	"DCAAdvisor/internal/fund"
	"DCAAdvisor/internal/metrics"
	"DCAAdvisor/internal/model"
	"DCAAdvisor/internal/notifier"
	"DCAAdvisor/internal/rebalance"
	"DCAAdvisor/internal/recorder"
	"DCAAdvisor/internal/strategy"
)

// Sender delivers formatted messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps bundles the collaborators the scheduler drives.
type Deps struct {
	Config     *config.Config
	Collector  *collector.Collector
	Evaluator  *strategy.Evaluator
	Schedule   calendar.Schedule
	Rebalancer *rebalance.Manager
	Notifier   Sender
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Location   *time.Location
	Log        zerolog.Logger
}

// Scheduler manages all cron tasks and chat commands.
type Scheduler struct {
	Cron *cron.Cron

	cfg        *config.Config
	collector  *collector.Collector
	evaluator  *strategy.Evaluator
	schedule   calendar.Schedule
	rebalancer *rebalance.Manager
	notifier   Sender
	recorder   recorder.Recorder
	metrics    *metrics.Metrics
	loc        *time.Location
	log        zerolog.Logger

	// mu serializes every access to the rebalance manager.
	mu  sync.Mutex
	ctx context.Context
	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, d Deps) *Scheduler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		cfg:        d.Config,
		collector:  d.Collector,
		evaluator:  d.Evaluator,
		schedule:   d.Schedule,
		rebalancer: d.Rebalancer,
		notifier:   d.Notifier,
		recorder:   d.Recorder,
		metrics:    d.Metrics,
		loc:        loc,
		log:        d.Log.With().Str("component", "scheduler").Logger(),
		ctx:        ctx,
		now:        time.Now,
	}
}

// RegisterAll registers the investment, rebalance, cache cleanup and market-open tasks.
func (s *Scheduler) RegisterAll() error {
	sc := s.cfg.Schedule
	if _, err := s.Cron.AddFunc(sc.DailyCron, s.investmentCheck); err != nil {
		return fmt.Errorf("register investment task: %w", err)
	}
	if s.cfg.Rebalance.Enabled {
		if _, err := s.Cron.AddFunc(sc.RebalanceCron, s.rebalanceCheck); err != nil {
			return fmt.Errorf("register rebalance task: %w", err)
		}
	}
	if _, err := s.Cron.AddFunc(sc.CacheCleanup, s.cacheCleanup); err != nil {
		return fmt.Errorf("register cache cleanup task: %w", err)
	}
	if sc.MarketOpenCron != "off" {
		if _, err := s.Cron.AddFunc(sc.MarketOpenCron, s.marketOpen); err != nil {
			return fmt.Errorf("register market-open task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunInvestmentNow executes the investment check immediately.
func (s *Scheduler) RunInvestmentNow() {
	s.investmentCheck()
}

func (s *Scheduler) today() time.Time {
	return s.now().In(s.loc)
}

func (s *Scheduler) investmentCheck() {
	today := s.today()
	if !s.schedule.IsScheduled(today) {
		s.log.Debug().Str("date", today.Format("2006-01-02")).Msg("not an investment day")
		return
	}
	s.log.Info().Str("date", today.Format("2006-01-02")).Msg("running investment check")
	// One recorded purchase per symbol and day, however often the check runs.
	session := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)

	for _, symbol := range s.cfg.DataSource.Tickers {
		sig, err := s.signal(symbol)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("investment check failed")
			s.trySend(fmt.Sprintf("❌ %s 投资计算失败: %v", symbol, err))
			continue
		}

		if sig.Allocation.Shares > 0 {
			trade := &model.Trade{
				Date:   session,
				Symbol: symbol,
				Price:  sig.Price,
				Shares: sig.Allocation.Shares,
				Amount: sig.Allocation.Amount,
			}
			if err := s.recorder.RecordTrade(trade); err != nil {
				s.log.Error().Err(err).Str("symbol", symbol).Msg("record trade")
			}
		}
		if err := s.recorder.RecordSignal(sig); err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("record signal")
		}
		if s.metrics != nil {
			s.metrics.RecordSignal(sig)
		}

		s.log.Info().
			Str("symbol", symbol).
			Float64("price", sig.Price).
			Float64("weight", sig.Weight).
			Int64("shares", sig.Allocation.Shares).
			Float64("amount", sig.Allocation.Amount).
			Msg("investment signal")
		s.trySend(notifier.FormatInvestmentReminder(sig))
	}
}

// signal collects market data for symbol and evaluates today's weight.
func (s *Scheduler) signal(symbol string) (*model.InvestmentSignal, error) {
	snap, err := s.collector.Collect(s.ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Evaluate(snap.Series, snap.Quote)
}

func (s *Scheduler) rebalanceCheck() {
	s.RunRebalanceNow()
}

// RunRebalanceNow fetches prices when the cadence is due, runs the rebalance
// and reports the outcome. Price fetch failures are reported but never enter
// the rebalance history.
func (s *Scheduler) RunRebalanceNow() model.RebalanceResult {
	today := s.today()
	s.log.Info().Msg("running rebalance check")

	s.mu.Lock()
	symbols := assets(s.rebalancer.Targets(), s.rebalancer.Holdings())
	due := s.rebalancer.IsRebalanceDue(today)
	s.mu.Unlock()
	if len(symbols) == 0 {
		s.log.Warn().Msg("rebalance enabled but no target allocations configured")
		return model.RebalanceResult{Status: model.RebalanceSkipped, Date: today, Reason: "no target allocations"}
	}

	var prices map[string]float64
	if due {
		var err error
		if prices, err = s.collector.Prices(s.ctx, symbols); err != nil {
			s.log.Error().Err(err).Msg("rebalance price fetch failed")
			s.trySend(fmt.Sprintf("❌ 再平衡行情获取失败: %v", err))
			return model.RebalanceResult{Status: model.RebalanceError, Date: today, Error: err.Error()}
		}
	}

	s.mu.Lock()
	if prices != nil {
		s.rebalancer.UpdatePrices(prices)
	}
	deviation := s.rebalancer.MaxDeviation(s.rebalancer.CurrentAllocations())
	res := s.rebalancer.ExecuteRebalance(today, prices)
	holdings := s.rebalancer.Holdings()
	state := s.rebalancer.Snapshot(s.now())
	s.mu.Unlock()

	if err := fund.SaveState(s.cfg.Fund.StateFile, &state); err != nil {
		s.log.Error().Err(err).Msg("save portfolio state")
	}
	if err := s.recorder.RecordRebalance(&res); err != nil {
		s.log.Error().Err(err).Msg("record rebalance")
	}
	if s.metrics != nil {
		s.metrics.RecordRebalance(res.Status)
	}

	s.log.Info().
		Str("status", string(res.Status)).
		Str("reason", res.Reason).
		Str("error", res.Error).
		Float64("max_deviation", deviation).
		Msg("rebalance evaluated")

	switch {
	case res.Status == model.RebalanceSuccess:
		s.trySend(notifier.FormatRebalanceAlert(deviation, nonZero(res.Trades)) + "\n\n" +
			notifier.FormatRebalanceReport(res, holdings))
	case res.Reason == model.ReasonNotNeeded:
		// Nothing to report.
	default:
		s.trySend(notifier.FormatRebalanceReport(res, holdings))
	}
	return res
}

func (s *Scheduler) cacheCleanup() {
	s.collector.PurgeExpired()
}

func (s *Scheduler) marketOpen() {
	today := s.today()
	open := time.Date(today.Year(), today.Month(), today.Day(), 9, 30, 0, 0, s.loc)
	s.trySend(notifier.FormatMarketOpen(open))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	arg := ""
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}

	switch strings.ToLower(fields[0]) {
	case "/status", "查看状态":
		return notifier.FormatStatus(s.status())
	case "/next", "下次定投":
		return s.nextText()
	case "/returns", "查看收益":
		if arg == "" {
			return "用法: /returns SYMBOL"
		}
		return s.returnsText(arg)
	case "/signal", "查看建议":
		if arg == "" {
			return "用法: /signal SYMBOL"
		}
		sig, err := s.signal(arg)
		if err != nil {
			return fmt.Sprintf("❌ %s 投资计算失败: %v", arg, err)
		}
		return notifier.FormatInvestmentReminder(sig)
	case "/backtest", "回测":
		if arg == "" {
			return "用法: /backtest SYMBOL"
		}
		return s.backtestText(arg)
	case "/refresh", "刷新":
		if arg == "" {
			return "用法: /refresh SYMBOL"
		}
		s.collector.Refresh(arg)
		return fmt.Sprintf("🔄 已清除 %s 的历史缓存", arg)
	case "/rebalance", "再平衡":
		if !s.cfg.Rebalance.Enabled {
			return "再平衡未启用"
		}
		res := s.RunRebalanceNow()
		if res.Reason == model.ReasonNotNeeded {
			return "当前无需再平衡 ✅"
		}
		return ""
	default:
		return helpText
	}
}

const helpText = "可用命令:\n• /status 查看状态\n• /next 下次定投\n• /signal SYMBOL 今日建议\n• /returns SYMBOL 查看收益\n• /backtest SYMBOL 回测\n• /refresh SYMBOL 刷新历史数据\n• /rebalance 立即检查再平衡"

func (s *Scheduler) status() notifier.Status {
	now := s.today()
	st := notifier.Status{
		Now:              now,
		Tickers:          s.cfg.DataSource.Tickers,
		NextInvestment:   s.schedule.Next(now),
		RebalanceEnabled: s.cfg.Rebalance.Enabled,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st.Period = s.rebalancer.Period()
	st.Threshold = s.rebalancer.Threshold()
	st.Targets = s.rebalancer.Targets()
	st.Holdings = s.rebalancer.Holdings()
	st.Allocations = s.rebalancer.CurrentAllocations()
	st.MaxDeviation = s.rebalancer.MaxDeviation(st.Allocations)
	if last, ok := s.rebalancer.LastRebalanceDate(); ok {
		st.LastRebalance = &last
	}
	st.NextRebalance = s.rebalancer.NextRebalanceDate(now)
	st.Metrics = s.rebalancer.PerformanceMetrics()
	return st
}

func (s *Scheduler) nextText() string {
	now := s.today()
	next := s.schedule.Next(now)
	msg := fmt.Sprintf("📅 下次定投日: %s (%d 天后)", next.Format("2006-01-02"), daysBetween(now, next))
	if s.cfg.Rebalance.Enabled {
		s.mu.Lock()
		nr := s.rebalancer.NextRebalanceDate(now)
		s.mu.Unlock()
		msg += fmt.Sprintf("\n⚖️ 下次可再平衡: %s", nr.Format("2006-01-02"))
	}
	return msg
}

func (s *Scheduler) returnsText(symbol string) string {
	trades, err := s.recorder.ListTrades(symbol)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("list trades")
		return fmt.Sprintf("❌ 读取 %s 交易记录失败: %v", symbol, err)
	}
	if len(trades) == 0 {
		return fmt.Sprintf("暂无 %s 的交易记录", symbol)
	}
	quote, err := s.collector.Quote(s.ctx, symbol)
	if err != nil {
		return fmt.Sprintf("❌ %s 行情获取失败: %v", symbol, err)
	}
	r, err := fund.Aggregate(trades, quote.Price)
	if err != nil {
		return fmt.Sprintf("❌ %s 收益计算失败: %v", symbol, err)
	}
	var annualized *float64
	if days := fund.HoldingDays(trades, s.today()); days > 0 {
		if a, err := fund.Annualize(r.TotalReturn, r.TotalInvestment, days); err == nil {
			annualized = &a
		}
	}
	return notifier.FormatReturns(symbol, r, annualized)
}

func (s *Scheduler) backtestText(symbol string) string {
	series, err := s.collector.History(s.ctx, symbol)
	if err != nil {
		return fmt.Sprintf("❌ %s 历史数据获取失败: %v", symbol, err)
	}
	res, err := s.evaluator.Backtest(series, s.schedule)
	if err != nil {
		return fmt.Sprintf("❌ %s 回测失败: %v", symbol, err)
	}
	return notifier.FormatBacktest(res)
}

func (s *Scheduler) trySend(text string) {
	if err := s.notifier.SendWithRetry(s.ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

func assets(targets map[string]float64, holdings map[string]int64) []string {
	seen := make(map[string]bool, len(targets)+len(holdings))
	for k := range targets {
		seen[k] = true
	}
	for k, v := range holdings {
		if v != 0 {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonZero(trades map[string]int64) int {
	n := 0
	for _, v := range trades {
		if v != 0 {
			n++
		}
	}
	return n
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
