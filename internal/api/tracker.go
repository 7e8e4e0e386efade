package api

import (
	"sync"
	"time"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// State names the lifecycle phase of the current run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// RunStatus is the JSON shape served by /v1/run.
type RunStatus struct {
	RunID         string    `json:"runId,omitempty"`
	State         State     `json:"state"`
	StartedAt     time.Time `json:"startedAt,omitempty"`
	FinishedAt    time.Time `json:"finishedAt,omitempty"`
	StoresScraped int       `json:"storesScraped"`
	StoresFailed  int       `json:"storesFailed"`
	Pages         int       `json:"pages"`
	PricePoints   int       `json:"pricePoints"`
	NewProducts   int       `json:"newProducts"`
	Error         string    `json:"error,omitempty"`
}

// Tracker holds the status of the most recent run for the ops API.
type Tracker struct {
	mu     sync.RWMutex
	status RunStatus
}

// NewTracker returns an idle Tracker.
func NewTracker() *Tracker {
	return &Tracker{status: RunStatus{State: StateIdle}}
}

// Started records the beginning of a run.
func (t *Tracker) Started(runID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = RunStatus{
		RunID:     runID,
		State:     StateRunning,
		StartedAt: at,
	}
}

// Finished records the run's end. err may be nil.
func (t *Tracker) Finished(summary scraper.RunSummary, at time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if summary.RunID != "" {
		t.status.RunID = summary.RunID
	}
	t.status.FinishedAt = at
	t.status.StoresScraped = summary.StoresScraped
	t.status.StoresFailed = summary.StoresFailed
	t.status.Pages = summary.TotalStats.Pages
	t.status.PricePoints = summary.TotalStats.PricePoints
	t.status.NewProducts = summary.TotalStats.NewProducts
	if err != nil {
		t.status.State = StateFailed
		t.status.Error = err.Error()
		return
	}
	t.status.State = StateCompleted
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
