package evidence

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SakshiShukla1/forensight/internal/scan"
)

// TimestampLayout is the capture-time display format. The stored string is
// fixed at ingestion and reused verbatim everywhere downstream.
const TimestampLayout = "2006-01-02 15:04:05"

// MalformedResponseError reports a backend payload that returned success
// but is missing the fields a record requires. Ingestion never defaults
// score or verdict silently.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed scan response: %s", e.Reason)
}

// Pipeline turns raw scan results into evidence records. IDs are derived
// from the clock and guarded to stay strictly increasing even when two
// ingestions land inside the same nanosecond tick.
type Pipeline struct {
	mu     sync.Mutex
	lastID int64
	now    func() time.Time
}

// NewPipeline constructs a pipeline. A nil clock defaults to time.Now.
func NewPipeline(now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{now: now}
}

// Ingest builds an immutable Record from a scan result. It performs no I/O
// and fails only on a contract violation at the backend boundary.
func (p *Pipeline) Ingest(module Module, target string, res *scan.Result) (Record, error) {
	if res == nil {
		return Record{}, &MalformedResponseError{Reason: "empty result"}
	}
	if res.Score == nil {
		return Record{}, &MalformedResponseError{Reason: "missing score"}
	}
	if *res.Score < 0 || *res.Score > 100 {
		return Record{}, &MalformedResponseError{Reason: fmt.Sprintf("score %d outside [0,100]", *res.Score)}
	}
	if strings.TrimSpace(res.Verdict) == "" {
		return Record{}, &MalformedResponseError{Reason: "missing verdict"}
	}

	if module == ModuleBrowser {
		target = BrowserTarget
	}

	// Copied so later mutation of the result cannot reach the record.
	details := append([]string{}, res.Findings...)

	p.mu.Lock()
	ts := p.now()
	id := ts.UnixNano()
	if id <= p.lastID {
		id = p.lastID + 1
	}
	p.lastID = id
	p.mu.Unlock()

	return Record{
		ID:        id,
		Module:    module,
		Target:    target,
		Timestamp: ts.Format(TimestampLayout),
		Score:     *res.Score,
		Verdict:   res.Verdict,
		Details:   details,
	}, nil
}
