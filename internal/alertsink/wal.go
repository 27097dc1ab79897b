package alertsink

import (
	"go.uber.org/zap"

	"bybit-volume-scanner/internal/domain"
	"bybit-volume-scanner/internal/storage/alerts"
)

// WAL forwards alerts into the durable alert log. Write failures are logged
// and swallowed so a bad disk never stops the scan loop.
type WAL struct {
	store  *alerts.WALStore
	logger *zap.Logger
}

// NewWAL creates a WAL-backed alert sink.
func NewWAL(store *alerts.WALStore, logger *zap.Logger) *WAL {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WAL{store: store, logger: logger}
}

// Notify appends the alert to the WAL.
func (w *WAL) Notify(alert domain.Alert) {
	if err := w.store.Save(alert); err != nil {
		w.logger.Warn("could not persist alert",
			zap.String("symbol", alert.Symbol), zap.Error(err))
	}
}
