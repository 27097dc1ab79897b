// Package scanner implements the rolling-window volume baseline and
// spike-detection engine: it accumulates time-stamped volume samples per
// symbol, prunes them to a bounded window, derives a baseline average and
// compares the latest reading against it under a cold-start policy.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bybit-volume-scanner/internal/domain"
)

// Config holds the scan parameters read by every cycle. The control surface
// may swap it at runtime; a cycle copies it once at the top, so updates apply
// from the next cycle on.
type Config struct {
	Category       domain.Category
	TimeframeHours int
	// Threshold is the minimum volume increase, in percent, that raises an alert.
	Threshold     float64
	CheckInterval time.Duration
	// WindowBuffer widens the retention window beyond the timeframe so the
	// baseline keeps enough trailing samples after the latest one is excluded.
	// A heuristic tunable, 1.2 by default.
	WindowBuffer float64
	// NegligibleVolume is the floor below which tickers are treated as
	// missing-data noise: not recorded, not evaluated. A symbol dipping under
	// the floor loses tracking continuity until its volume recovers.
	NegligibleVolume float64
}

// Window is the retention span for stored samples.
func (c Config) Window() time.Duration {
	return time.Duration(float64(c.TimeframeHours) * c.WindowBuffer * float64(time.Hour))
}

// TickerSource fetches the current ticker snapshots for a category.
type TickerSource interface {
	GetTickers(ctx context.Context, category domain.Category) ([]domain.Ticker, error)
}

// KlineVolumeSource computes a baseline from exchange-side hourly bars. It is
// the fallback when local history is insufficient; a zero result means the
// data was unusable and the symbol is skipped.
type KlineVolumeSource interface {
	HourlyVolumeAvg(ctx context.Context, symbol string, category domain.Category, hours int) (float64, error)
}

// SnapshotStore persists the volume history between restarts. Best effort:
// failures are logged by the scanner, never fatal.
type SnapshotStore interface {
	Load() (map[string][]domain.Sample, error)
	Save(history map[string][]domain.Sample) error
}

// AlertSink receives alerts in generation order, at most once per detection.
type AlertSink interface {
	Notify(alert domain.Alert)
}

// Status is a point-in-time view of the scanner for the control surface.
type Status struct {
	Running        bool
	FirstRun       bool
	LastScan       time.Time
	TotalPairs     int
	TrackedSymbols int
}

// Scanner owns the volume store and runs scan cycles. The store and config
// are shared with the control surface, guarded by the scanner's lock.
type Scanner struct {
	store     *VolumeStore
	tickers   TickerSource
	klines    KlineVolumeSource
	snapshots SnapshotStore
	sinks     []AlertSink
	logger    *zap.Logger

	mu         sync.Mutex
	cfg        Config
	firstRun   bool
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	lastScan   time.Time
	totalPairs int
}

// New creates a scanner and loads the persisted volume history. A missing or
// unreadable snapshot falls back to an empty store, which puts the scanner in
// its cold-start phase: the first cycle only collects data and emits no alerts.
func New(cfg Config, tickers TickerSource, klines KlineVolumeSource, snapshots SnapshotStore, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}

	store := NewVolumeStore()

	history, err := snapshots.Load()
	if err != nil {
		logger.Warn("could not load volume history, starting empty", zap.Error(err))
		history = nil
	}
	store.Restore(history)

	return &Scanner{
		store:     store,
		tickers:   tickers,
		klines:    klines,
		snapshots: snapshots,
		logger:    logger,
		cfg:       cfg,
		firstRun:  store.Len() == 0,
	}
}

// AddSink registers an alert sink. Not safe to call after Start.
func (s *Scanner) AddSink(sink AlertSink) {
	s.sinks = append(s.sinks, sink)
}

// Config returns a copy of the current scan configuration.
func (s *Scanner) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg
}

// Configure replaces the scan configuration. Validation happens at the
// boundary (config package, HTTP handlers); the scanner applies what it gets.
func (s *Scanner) Configure(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
}

// Status reports the current scanner state.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Running:        s.running,
		FirstRun:       s.firstRun,
		LastScan:       s.lastScan,
		TotalPairs:     s.totalPairs,
		TrackedSymbols: s.store.Len(),
	}
}

// Symbols lists all tracked symbols.
func (s *Scanner) Symbols() []string {
	return s.store.Symbols()
}

// SymbolHistory returns the sample history for one symbol.
func (s *Scanner) SymbolHistory(symbol string) ([]domain.Sample, bool) {
	return s.store.History(symbol)
}

// ScanOnce runs a single scan cycle: fetch tickers, update histories, detect
// spikes, persist. Every failure degrades gracefully, so the cycle always
// completes and returns the alerts it generated (none during cold start).
func (s *Scanner) ScanOnce(ctx context.Context) []domain.Alert {
	s.mu.Lock()
	cfg := s.cfg
	firstRun := s.firstRun
	s.lastScan = time.Now()
	s.mu.Unlock()

	tickers, err := s.tickers.GetTickers(ctx, cfg.Category)
	if err != nil {
		s.logger.Warn("ticker fetch failed, proceeding with empty snapshot",
			zap.String("category", cfg.Category.String()), zap.Error(err))
		tickers = nil
	}

	s.mu.Lock()
	s.totalPairs = len(tickers)
	s.mu.Unlock()

	s.logger.Info("scanning pairs",
		zap.Int("count", len(tickers)),
		zap.String("category", cfg.Category.String()),
		zap.Bool("first_run", firstRun))

	now := time.Now()
	window := cfg.Window()

	var alerts []domain.Alert
	for _, ticker := range tickers {
		if ticker.Volume24h < cfg.NegligibleVolume {
			continue
		}

		s.store.Update(ticker.Symbol, ticker.Volume24h, now, window)

		if firstRun {
			continue
		}

		avg, ok := s.estimateBaseline(ctx, ticker.Symbol, cfg)
		if !ok {
			continue
		}

		changePct := VolumeChangePct(ticker.Volume24h, avg)
		if !ShouldAlert(changePct, cfg.Threshold) {
			continue
		}

		alerts = append(alerts, domain.Alert{
			Symbol:          ticker.Symbol,
			CurrentVolume:   ticker.Volume24h,
			AvgVolume:       avg,
			VolumeChangePct: changePct,
			LastPrice:       ticker.LastPrice,
			PriceChange24h:  ticker.PriceChangePct24h,
			Timestamp:       now,
		})
	}

	if err := s.snapshots.Save(s.store.Snapshot()); err != nil {
		s.logger.Warn("could not persist volume history", zap.Error(err))
	}

	if firstRun {
		s.mu.Lock()
		s.firstRun = false
		s.mu.Unlock()
		s.logger.Info("baseline data collected", zap.Int("symbols", s.store.Len()))
	}

	return alerts
}

// estimateBaseline tries local history first and falls back to exchange-side
// hourly bars for symbols without enough samples. ok=false means the symbol
// has no usable baseline this cycle and is skipped without error.
func (s *Scanner) estimateBaseline(ctx context.Context, symbol string, cfg Config) (float64, bool) {
	history, _ := s.store.History(symbol)
	if avg, ok := Baseline(history); ok {
		return avg, true
	}

	avg, err := s.klines.HourlyVolumeAvg(ctx, symbol, cfg.Category, cfg.TimeframeHours)
	if err != nil {
		s.logger.Debug("historical volume unavailable",
			zap.String("symbol", symbol), zap.Error(err))
		return 0, false
	}
	if avg == 0 {
		return 0, false
	}

	return avg, true
}

// Run executes scan cycles until ctx is cancelled, sleeping CheckInterval
// between them. Cancellation is observed between cycles only; an in-flight
// cycle always completes so the persisted state stays consistent.
func (s *Scanner) Run(ctx context.Context) {
	interval := s.Config().CheckInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		alerts := s.ScanOnce(ctx)
		for _, alert := range alerts {
			for _, sink := range s.sinks {
				sink.Notify(alert)
			}
		}

		if len(alerts) > 0 {
			s.logger.Info("volume spikes detected", zap.Int("count", len(alerts)))
		}

		if next := s.Config().CheckInterval; next != interval {
			interval = next
			ticker.Reset(interval)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Start launches the scan loop on a background goroutine. Returns false when
// the loop is already running.
func (s *Scanner) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			close(done)
		}()
		s.Run(ctx)
	}(s.done)

	return true
}

// Stop cancels the scan loop and waits for the in-flight cycle to finish.
// Returns false when the loop was not running.
func (s *Scanner) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	return true
}

// Running reports whether the scan loop is active.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Reset clears the volume history and returns the scanner to its cold-start
// phase, as if the process had started fresh. The cleared state is persisted
// so a restart does not resurrect the old history.
func (s *Scanner) Reset() error {
	s.store.Reset()

	s.mu.Lock()
	s.firstRun = true
	s.totalPairs = 0
	s.lastScan = time.Time{}
	s.mu.Unlock()

	if err := s.snapshots.Save(s.store.Snapshot()); err != nil {
		return errors.Wrap(err, "persist cleared volume history")
	}

	return nil
}
