package recorder

import "github.com/regholl2023/minitrade/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSpot(_ string, _ *model.Spot) error  { return nil }
func (n *NoopRecorder) RecordBars(_ string, _ *model.Frame) error { return nil }
func (n *NoopRecorder) Close() error                              { return nil }

func (n *NoopRecorder) SpotHistory(_, _ string, _ int) ([]SpotRecord, error) {
	return nil, nil
}
