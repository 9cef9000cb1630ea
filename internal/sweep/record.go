package sweep

import (
	"fmt"
	"time"
)

// Kind of filesystem entry a record refers to
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Outcome of one removal attempt
type Outcome string

const (
	OutcomeRemoved Outcome = "removed"
	OutcomeFailed  Outcome = "failed"
)

// Record captures the outcome of attempting to remove one matched entry.
// Records are produced during the walk and consumed for reporting and
// history; they are not otherwise persisted by the sweeper itself.
type Record struct {
	Path    string
	Kind    Kind
	Outcome Outcome
	Size    int64 // Bytes freed (or that would have been freed); best effort for directories
	Err     string
	SweptAt time.Time
}

// Failed reports whether this removal attempt did not succeed
func (r Record) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Summary aggregates a sweep's records for reporting
type Summary struct {
	Removed    int
	Failed     int
	BytesFreed int64
}

// Summarize folds a record sequence into success/failure counts
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		if r.Failed() {
			s.Failed++
			continue
		}
		s.Removed++
		s.BytesFreed += r.Size
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("removed=%d failed=%d freed=%d bytes", s.Removed, s.Failed, s.BytesFreed)
}
