package recorder

import (
	"time"

	"TrendAdvisor/internal/model"
)

// ScanRun holds all data for one universe scan.
type ScanRun struct {
	ID         string // assigned by the recorder when empty
	StartedAt  time.Time
	Elapsed    time.Duration
	Reference  string
	Scanned    int
	Partial    bool
	Candidates []model.Candidate
	Dropped    map[string]string
}

// HoldingRecord is one classified holding.
type HoldingRecord struct {
	Symbol         string
	Classification model.Classification
	Price          float64
	PnL            float64
	PnLPct         float64
	Warning        string
}

// ScanSummary is a row of scan history.
type ScanSummary struct {
	ID         string
	StartedAt  time.Time
	Candidates int
	Dropped    int
	Partial    bool
	Closest    string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordScan(run *ScanRun) (string, error)
	RecordHoldings(strategy string, recs []HoldingRecord) error
	RecentScans(limit int) ([]ScanSummary, error)
	Close() error
}
