package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SakshiShukla1/forensight/internal/bus"
	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/evidence"
	"github.com/SakshiShukla1/forensight/internal/scan"
	"github.com/SakshiShukla1/forensight/internal/store"
)

func intPtr(n int) *int { return &n }

func testRecorder(t *testing.T) (*Recorder, *caselog.Store, *store.Store) {
	t.Helper()

	archive, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })

	cases := caselog.NewStore(nil)
	logger := log.New(io.Discard, "", 0)
	rec := NewRecorder(evidence.NewPipeline(nil), cases, archive, bus.NewNullBus(logger), logger)
	return rec, cases, archive
}

func TestRecord(t *testing.T) {
	recorder, cases, archive := testRecorder(t)
	ctx := context.Background()

	snap, err := cases.CreateCase("Case")
	require.NoError(t, err)
	require.NoError(t, archive.SaveCase(ctx, snap.ID, snap.Name, snap.CreatedAt))

	rec, err := recorder.Record(ctx, evidence.ModuleURL, "http://evil.example", &scan.Result{
		Score:    intPtr(85),
		Verdict:  "Malicious",
		Findings: []string{"Blacklisted"},
	})
	require.NoError(t, err)
	assert.Equal(t, evidence.ModuleURL, rec.Module)

	// Appended to the in-memory log.
	log := cases.ActiveLog()
	require.Len(t, log, 1)
	assert.Equal(t, rec.ID, log[0].ID)

	// Auto-selected for inspection.
	sel, ok := cases.Selected()
	require.True(t, ok)
	assert.Equal(t, rec.ID, sel.ID)

	// Archived with an activity trail entry.
	archived, err := archive.GetEvidenceByCase(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, rec.ID, archived[0].ID)

	entries, err := archive.GetActivity(ctx, snap.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "evidence_added", entries[0].Action)
}

func TestRecordOwnershipUnderCaseSwitching(t *testing.T) {
	// Archive attribution must match the in-memory log the record landed
	// in even when the active case changes while records are in flight.
	recorder, cases, archive := testRecorder(t)
	ctx := context.Background()

	a, err := cases.CreateCase("Alpha")
	require.NoError(t, err)
	require.NoError(t, archive.SaveCase(ctx, a.ID, a.Name, a.CreatedAt))
	b, err := cases.CreateCase("Beta")
	require.NoError(t, err)
	require.NoError(t, archive.SaveCase(ctx, b.ID, b.Name, b.CreatedAt))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				cases.SwitchCase(a.ID)
			} else {
				cases.SwitchCase(b.ID)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		_, err := recorder.Record(ctx, evidence.ModuleURL, "http://example.com", &scan.Result{
			Score:   intPtr(50),
			Verdict: "Suspicious",
		})
		require.NoError(t, err)
	}
	<-done

	inLog := make(map[int64]int64)
	for _, caseID := range []int64{a.ID, b.ID} {
		require.NoError(t, cases.SwitchCase(caseID))
		for _, rec := range cases.ActiveLog() {
			inLog[rec.ID] = caseID
		}
	}

	total := 0
	for _, caseID := range []int64{a.ID, b.ID} {
		archived, err := archive.GetEvidenceByCase(ctx, caseID)
		require.NoError(t, err)
		total += len(archived)
		for _, rec := range archived {
			assert.Equal(t, inLog[rec.ID], caseID,
				"record %d archived under case %d but logged under case %d", rec.ID, caseID, inLog[rec.ID])
		}
	}
	assert.Equal(t, 200, total)
}

func TestRecordNoActiveCase(t *testing.T) {
	recorder, _, _ := testRecorder(t)

	_, err := recorder.Record(context.Background(), evidence.ModuleURL, "http://example.com", &scan.Result{
		Score:   intPtr(10),
		Verdict: "Clean",
	})
	assert.Error(t, err)
}

func TestRecordMalformedResult(t *testing.T) {
	recorder, cases, _ := testRecorder(t)
	_, err := cases.CreateCase("Case")
	require.NoError(t, err)

	_, err = recorder.Record(context.Background(), evidence.ModuleURL, "http://example.com", &scan.Result{
		Verdict: "Clean", // no score
	})
	require.Error(t, err)

	var malformed *evidence.MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
	assert.Empty(t, cases.ActiveLog(), "rejected results never reach the log")
}

func TestRecordWithoutArchiveOrBus(t *testing.T) {
	cases := caselog.NewStore(nil)
	recorder := NewRecorder(evidence.NewPipeline(nil), cases, nil, nil, nil)

	_, err := cases.CreateCase("Case")
	require.NoError(t, err)

	rec, err := recorder.Record(context.Background(), evidence.ModuleBrowser, "", &scan.Result{
		Score:   intPtr(5),
		Verdict: "Clean",
	})
	require.NoError(t, err)
	assert.Equal(t, evidence.BrowserTarget, rec.Target)
}
