package recorder

import "github.com/google/uuid"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(run *ScanRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return run.ID, nil
}
func (n *NoopRecorder) RecordHoldings(_ string, _ []HoldingRecord) error { return nil }
func (n *NoopRecorder) RecentScans(_ int) ([]ScanSummary, error)         { return nil, nil }
func (n *NoopRecorder) Close() error                                     { return nil }
