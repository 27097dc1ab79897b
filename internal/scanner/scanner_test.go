package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bybit-volume-scanner/internal/domain"
)

type fakeTickers struct {
	tickers []domain.Ticker
	err     error
	calls   int
}

func (f *fakeTickers) GetTickers(_ context.Context, _ domain.Category) ([]domain.Ticker, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tickers, nil
}

type fakeKlines struct {
	avg   map[string]float64
	err   error
	calls []string
}

func (f *fakeKlines) HourlyVolumeAvg(_ context.Context, symbol string, _ domain.Category, _ int) (float64, error) {
	f.calls = append(f.calls, symbol)
	if f.err != nil {
		return 0, f.err
	}
	return f.avg[symbol], nil
}

type fakeSnapshots struct {
	loadData map[string][]domain.Sample
	loadErr  error
	saveErr  error
	saved    []map[string][]domain.Sample
}

func (f *fakeSnapshots) Load() (map[string][]domain.Sample, error) {
	return f.loadData, f.loadErr
}

func (f *fakeSnapshots) Save(history map[string][]domain.Sample) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, history)
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (c *captureSink) Notify(alert domain.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func testConfig() Config {
	return Config{
		Category:         domain.CategorySpot,
		TimeframeHours:   24,
		Threshold:        30.0,
		CheckInterval:    time.Second,
		WindowBuffer:     1.2,
		NegligibleVolume: 0.01,
	}
}

func ticker(symbol string, volume float64) domain.Ticker {
	return domain.Ticker{
		Symbol:            symbol,
		Volume24h:         volume,
		LastPrice:         "50000",
		PriceChangePct24h: "0.0123",
	}
}

func TestScanOnceColdStartSuppressesAlerts(t *testing.T) {
	tickers := &fakeTickers{tickers: []domain.Ticker{
		ticker("BTCUSDT", 1000),
		ticker("ETHUSDT", 500),
	}}
	klines := &fakeKlines{avg: map[string]float64{"BTCUSDT": 1, "ETHUSDT": 1}}
	snapshots := &fakeSnapshots{}

	scan := New(testConfig(), tickers, klines, snapshots, zap.NewNop())
	require.True(t, scan.Status().FirstRun)

	alerts := scan.ScanOnce(context.Background())

	assert.Empty(t, alerts, "the first cycle only collects data")
	assert.Empty(t, klines.calls, "cold start must not evaluate baselines")
	assert.False(t, scan.Status().FirstRun, "cold start ends after the first cycle")
	assert.Equal(t, 2, scan.Status().TrackedSymbols)

	for _, symbol := range []string{"BTCUSDT", "ETHUSDT"} {
		history, ok := scan.SymbolHistory(symbol)
		require.True(t, ok)
		assert.Len(t, history, 1)
	}
	assert.Len(t, snapshots.saved, 1, "every cycle persists the history")
}

func TestScanOnceDetectsSpikeOnSecondCycle(t *testing.T) {
	tickers := &fakeTickers{tickers: []domain.Ticker{
		ticker("BTCUSDT", 1000),
		ticker("ETHUSDT", 500),
	}}
	klines := &fakeKlines{}
	snapshots := &fakeSnapshots{}

	scan := New(testConfig(), tickers, klines, snapshots, zap.NewNop())
	scan.ScanOnce(context.Background())

	tickers.tickers = []domain.Ticker{
		ticker("BTCUSDT", 1300), // +30% over the 1000 baseline
		ticker("ETHUSDT", 500),  // unchanged
	}

	alerts := scan.ScanOnce(context.Background())

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, "BTCUSDT", alert.Symbol)
	assert.Equal(t, 1300.0, alert.CurrentVolume)
	assert.Equal(t, 1000.0, alert.AvgVolume)
	assert.InDelta(t, 30.0, alert.VolumeChangePct, 1e-9)
	assert.Equal(t, "50000", alert.LastPrice)
	assert.Equal(t, "0.0123", alert.PriceChange24h)
	assert.False(t, alert.Timestamp.IsZero())
	assert.Empty(t, klines.calls, "two local samples are enough, no fallback needed")
}

func TestScanOnceFallbackForNewSymbol(t *testing.T) {
	// a pre-existing history skips the cold-start phase
	seeded := map[string][]domain.Sample{
		"BTCUSDT": {{Timestamp: time.Now().Add(-time.Hour), Volume: 1000}},
	}
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("NEWUSDT", 200)}}
	klines := &fakeKlines{avg: map[string]float64{"NEWUSDT": 100}}
	snapshots := &fakeSnapshots{loadData: seeded}

	scan := New(testConfig(), tickers, klines, snapshots, zap.NewNop())
	require.False(t, scan.Status().FirstRun)

	alerts := scan.ScanOnce(context.Background())

	require.Len(t, alerts, 1)
	assert.Equal(t, "NEWUSDT", alerts[0].Symbol)
	assert.Equal(t, 100.0, alerts[0].AvgVolume)
	assert.InDelta(t, 100.0, alerts[0].VolumeChangePct, 1e-9)
	assert.Equal(t, []string{"NEWUSDT"}, klines.calls)
}

func TestScanOnceSkipsSymbolWhenFallbackUnusable(t *testing.T) {
	seeded := map[string][]domain.Sample{
		"BTCUSDT": {{Timestamp: time.Now().Add(-time.Hour), Volume: 1000}},
	}

	t.Run("zero fallback average", func(t *testing.T) {
		tickers := &fakeTickers{tickers: []domain.Ticker{ticker("NEWUSDT", 200)}}
		klines := &fakeKlines{avg: map[string]float64{"NEWUSDT": 0}}
		snapshots := &fakeSnapshots{loadData: seeded}

		scan := New(testConfig(), tickers, klines, snapshots, zap.NewNop())
		alerts := scan.ScanOnce(context.Background())

		assert.Empty(t, alerts)
		history, ok := scan.SymbolHistory("NEWUSDT")
		require.True(t, ok)
		assert.Len(t, history, 1, "the sample is still recorded")
	})

	t.Run("fallback error", func(t *testing.T) {
		tickers := &fakeTickers{tickers: []domain.Ticker{ticker("NEWUSDT", 200)}}
		klines := &fakeKlines{err: errors.New("api down")}
		snapshots := &fakeSnapshots{loadData: seeded}

		scan := New(testConfig(), tickers, klines, snapshots, zap.NewNop())
		alerts := scan.ScanOnce(context.Background())

		assert.Empty(t, alerts, "baseline failures skip the symbol, never abort the cycle")
	})
}

func TestScanOnceIgnoresNegligibleVolume(t *testing.T) {
	seeded := map[string][]domain.Sample{
		"BTCUSDT": {{Timestamp: time.Now().Add(-time.Hour), Volume: 1000}},
	}
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("DUSTUSDT", 0.005)}}
	klines := &fakeKlines{}
	snapshots := &fakeSnapshots{loadData: seeded}

	scan := New(testConfig(), tickers, klines, snapshots, zap.NewNop())
	alerts := scan.ScanOnce(context.Background())

	assert.Empty(t, alerts)
	_, ok := scan.SymbolHistory("DUSTUSDT")
	assert.False(t, ok, "dust volume is noise, not a sample")
	assert.Empty(t, klines.calls)
}

func TestScanOnceTickerFetchFailure(t *testing.T) {
	tickers := &fakeTickers{err: errors.New("timeout")}
	snapshots := &fakeSnapshots{}

	scan := New(testConfig(), tickers, &fakeKlines{}, snapshots, zap.NewNop())
	alerts := scan.ScanOnce(context.Background())

	assert.Empty(t, alerts)
	assert.Equal(t, 0, scan.Status().TotalPairs)
	assert.Len(t, snapshots.saved, 1, "the cycle still completes and persists")
}

func TestScanOncePersistFailureIsNonFatal(t *testing.T) {
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("BTCUSDT", 1000)}}
	snapshots := &fakeSnapshots{saveErr: errors.New("disk full")}

	scan := New(testConfig(), tickers, &fakeKlines{}, snapshots, zap.NewNop())
	require.NotPanics(t, func() { scan.ScanOnce(context.Background()) })

	history, ok := scan.SymbolHistory("BTCUSDT")
	require.True(t, ok)
	assert.Len(t, history, 1, "in-memory state survives a failed persist")
}

func TestScannerStartsEmptyOnUnreadableSnapshot(t *testing.T) {
	snapshots := &fakeSnapshots{loadErr: errors.New("corrupt json")}

	scan := New(testConfig(), &fakeTickers{}, &fakeKlines{}, snapshots, zap.NewNop())

	assert.True(t, scan.Status().FirstRun)
	assert.Equal(t, 0, scan.Status().TrackedSymbols)
}

func TestScannerReset(t *testing.T) {
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("BTCUSDT", 1000)}}
	snapshots := &fakeSnapshots{}

	scan := New(testConfig(), tickers, &fakeKlines{}, snapshots, zap.NewNop())
	scan.ScanOnce(context.Background())
	require.False(t, scan.Status().FirstRun)

	require.NoError(t, scan.Reset())

	status := scan.Status()
	assert.True(t, status.FirstRun, "reset returns to the cold-start phase")
	assert.Equal(t, 0, status.TrackedSymbols)
	assert.True(t, status.LastScan.IsZero())

	last := snapshots.saved[len(snapshots.saved)-1]
	assert.Empty(t, last, "the cleared state is persisted")

	// after the reset, a known symbol must not alert off stale history
	tickers.tickers = []domain.Ticker{ticker("BTCUSDT", 99999)}
	assert.Empty(t, scan.ScanOnce(context.Background()))
}

func TestScannerResetPersistFailure(t *testing.T) {
	snapshots := &fakeSnapshots{saveErr: errors.New("disk full")}

	scan := New(testConfig(), &fakeTickers{}, &fakeKlines{}, snapshots, zap.NewNop())

	err := scan.Reset()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist cleared volume history")
}

func TestConfigureAppliesOnNextCycle(t *testing.T) {
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("BTCUSDT", 1000)}}
	snapshots := &fakeSnapshots{}

	scan := New(testConfig(), tickers, &fakeKlines{}, snapshots, zap.NewNop())
	scan.ScanOnce(context.Background())

	// +25% is below the default 30% threshold
	tickers.tickers = []domain.Ticker{ticker("BTCUSDT", 1250)}
	assert.Empty(t, scan.ScanOnce(context.Background()))

	cfg := scan.Config()
	cfg.Threshold = 20.0
	scan.Configure(cfg)

	// baseline is now (1000+1250)/2 = 1125; 1350 is +20%
	tickers.tickers = []domain.Ticker{ticker("BTCUSDT", 1350)}
	alerts := scan.ScanOnce(context.Background())
	require.Len(t, alerts, 1)
	assert.InDelta(t, 20.0, alerts[0].VolumeChangePct, 1e-9)
}

func TestStartStopLifecycle(t *testing.T) {
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("BTCUSDT", 1000)}}
	snapshots := &fakeSnapshots{}

	cfg := testConfig()
	cfg.CheckInterval = 10 * time.Millisecond

	scan := New(cfg, tickers, &fakeKlines{}, snapshots, zap.NewNop())
	sink := &captureSink{}
	scan.AddSink(sink)

	require.True(t, scan.Start(context.Background()))
	assert.False(t, scan.Start(context.Background()), "second start is a no-op")
	assert.True(t, scan.Running())

	require.Eventually(t, func() bool {
		return scan.Status().TrackedSymbols == 1
	}, time.Second, 5*time.Millisecond)

	require.True(t, scan.Stop())
	assert.False(t, scan.Stop(), "second stop is a no-op")
	assert.False(t, scan.Running())
	assert.Zero(t, sink.count(), "a steady volume never alerts")
}

func TestRunDeliversAlertsToSinks(t *testing.T) {
	seeded := map[string][]domain.Sample{
		"BTCUSDT": {{Timestamp: time.Now().Add(-time.Minute), Volume: 1000}},
	}
	tickers := &fakeTickers{tickers: []domain.Ticker{ticker("BTCUSDT", 2000)}}
	snapshots := &fakeSnapshots{loadData: seeded}

	cfg := testConfig()
	cfg.CheckInterval = 10 * time.Millisecond

	scan := New(cfg, tickers, &fakeKlines{}, snapshots, zap.NewNop())
	first := &captureSink{}
	second := &captureSink{}
	scan.AddSink(first)
	scan.AddSink(second)

	require.True(t, scan.Start(context.Background()))
	require.Eventually(t, func() bool {
		return first.count() > 0 && second.count() > 0
	}, time.Second, 5*time.Millisecond)
	require.True(t, scan.Stop())

	first.mu.Lock()
	defer first.mu.Unlock()
	assert.Equal(t, "BTCUSDT", first.alerts[0].Symbol)
}

func TestConfigWindow(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, 28*time.Hour+48*time.Minute, cfg.Window())
}
