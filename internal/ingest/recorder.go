// Package ingest wires completed scan results into the case log, the
// session archive, and the notification bus. The same sequence backs the
// dashboard, the one-shot CLI, and the drop-folder watcher.
package ingest

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/SakshiShukla1/forensight/internal/bus"
	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/evidence"
	"github.com/SakshiShukla1/forensight/internal/scan"
	"github.com/SakshiShukla1/forensight/internal/store"
)

// Recorder turns a scan result into a durable evidence record: pipeline
// ingestion, append to the active case, archive write, bus notification.
// Archive and bus failures are logged, not fatal; the in-memory log is
// the authoritative copy.
type Recorder struct {
	Pipeline *evidence.Pipeline
	Cases    *caselog.Store
	Archive  *store.Store
	Bus      bus.Bus
	Logger   *log.Logger
}

// NewRecorder constructs a recorder. Archive and bus may be nil when the
// caller runs without them.
func NewRecorder(p *evidence.Pipeline, cases *caselog.Store, archive *store.Store, b bus.Bus, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Recorder{Pipeline: p, Cases: cases, Archive: archive, Bus: b, Logger: logger}
}

// Record ingests one scan result under the active case and returns the
// resulting record. The append happens strictly before Record returns,
// so callers holding a busy flag reset it only after the log is current.
func (r *Recorder) Record(ctx context.Context, module evidence.Module, target string, res *scan.Result) (evidence.Record, error) {
	rec, err := r.Pipeline.Ingest(module, target, res)
	if err != nil {
		return evidence.Record{}, err
	}

	// Append reports which case the record was bound to; the archive
	// and bus must attribute it to that case, not to whichever case is
	// active by the time they run.
	owner, err := r.Cases.Append(rec)
	if err != nil {
		return evidence.Record{}, err
	}

	if r.Archive != nil {
		if err := r.Archive.SaveEvidence(ctx, owner.ID, rec); err != nil {
			r.Logger.Printf("archive evidence %d: %v", rec.ID, err)
		}
		if err := r.Archive.LogActivity(ctx, owner.ID, "evidence_added", map[string]interface{}{
			"record_id": rec.ID,
			"module":    string(rec.Module),
			"target":    rec.Target,
			"verdict":   rec.Verdict,
		}); err != nil {
			r.Logger.Printf("log activity for evidence %d: %v", rec.ID, err)
		}
	}

	if r.Bus != nil {
		if err := r.Bus.PublishEvidence(ctx, bus.EvidenceMessage{
			CaseID:    owner.ID,
			RecordID:  rec.ID,
			Module:    string(rec.Module),
			Target:    rec.Target,
			Verdict:   rec.Verdict,
			Score:     rec.Score,
			Timestamp: time.Now().Unix(),
		}); err != nil {
			r.Logger.Printf("publish evidence %d: %v", rec.ID, err)
		}
	}

	return rec, nil
}
