package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/pulmoprobe/platform/pkg/common/models"
)

// Ledger is the append-only prediction history, read newest first. It lives
// for the process lifetime and is shared by reference.
type Ledger struct {
	mu sync.RWMutex
	// stored oldest first; readers see the reverse
	records []models.PredictionRecord
	seq     uint64
	nowFn   func() time.Time
}

func New() *Ledger {
	return &Ledger{nowFn: time.Now}
}

// NewWithClock is New with an injected clock.
func NewWithClock(nowFn func() time.Time) *Ledger {
	return &Ledger{nowFn: nowFn}
}

// Append records an outcome for inputs and returns the stored record. It is
// the only mutator.
func (l *Ledger) Append(inputs models.RawInput, outcome models.PredictionOutcome) models.PredictionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	now := l.nowFn().UTC()
	record := models.PredictionRecord{
		ID:        fmt.Sprintf("%d-%d", now.UnixMilli(), l.seq),
		Inputs:    inputs,
		Outcome:   outcome,
		CreatedAt: now,
	}
	l.records = append(l.records, record)
	return record
}

// Snapshot returns a copy of the ledger, newest first.
func (l *Ledger) Snapshot() []models.PredictionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.PredictionRecord, len(l.records))
	for i, record := range l.records {
		out[len(l.records)-1-i] = record
	}
	return out
}

func (l *Ledger) Get(id string) (models.PredictionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].ID == id {
			return l.records[i], true
		}
	}
	return models.PredictionRecord{}, false
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
