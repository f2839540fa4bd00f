package recorder

import (
	"time"

	"github.com/regholl2023/minitrade/internal/model"
)

// SpotRecord is one stored spot price. Price is nil when the market was closed.
type SpotRecord struct {
	Source     string    `json:"source"`
	Ticker     string    `json:"ticker"`
	CapturedAt time.Time `json:"captured_at"`
	Price      *float64  `json:"price"`
}

// Recorder persists captured quotes for later analysis.
type Recorder interface {
	RecordSpot(source string, spot *model.Spot) error
	// RecordBars upserts every non-missing cell of f, keyed by source, ticker and time.
	RecordBars(source string, f *model.Frame) error
	// SpotHistory returns the latest limit spot records of ticker, newest first.
	SpotHistory(source, ticker string, limit int) ([]SpotRecord, error)
	Close() error
}

// Open returns a SQLite recorder for path, or a no-op recorder when path is empty.
func Open(path string) (Recorder, error) {
	if path == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(path)
}
