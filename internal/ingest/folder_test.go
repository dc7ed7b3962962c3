package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SakshiShukla1/forensight/internal/evidence"
)

func writeDrop(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDropIngestorOneShot(t *testing.T) {
	recorder, cases, _ := testRecorder(t)
	_, err := cases.CreateCase("Case")
	require.NoError(t, err)

	dir := t.TempDir()
	writeDrop(t, dir, "url-scan.json",
		`{"module": "URL", "target": "http://evil.example", "score": 85, "verdict": "Malicious", "findings_list": ["Blacklisted"]}`)
	writeDrop(t, dir, "browser-sweep.json",
		`{"module": "Browser", "score": 12, "verdict": "Clean"}`)
	writeDrop(t, dir, "notes.txt", "not a scan result")

	var notified []evidence.Record
	di := NewDropIngestor(recorder, DropOptions{
		Dir:    dir,
		Logger: log.New(io.Discard, "", 0),
		OnIngest: func(rec evidence.Record) {
			notified = append(notified, rec)
		},
	})
	require.NoError(t, di.Run(context.Background()))

	ingested, errs := di.Stats()
	assert.Equal(t, 2, ingested)
	assert.Zero(t, errs)
	assert.Len(t, notified, 2)

	log := cases.ActiveLog()
	require.Len(t, log, 2)

	targets := []string{log[0].Target, log[1].Target}
	assert.Contains(t, targets, "http://evil.example")
	assert.Contains(t, targets, evidence.BrowserTarget)
}

func TestDropIngestorSkipsBadFiles(t *testing.T) {
	recorder, cases, _ := testRecorder(t)
	_, err := cases.CreateCase("Case")
	require.NoError(t, err)

	dir := t.TempDir()
	writeDrop(t, dir, "broken.json", `{not json`)
	writeDrop(t, dir, "no-score.json", `{"module": "URL", "target": "http://a.example", "verdict": "Clean"}`)
	writeDrop(t, dir, "bad-module.json", `{"module": "Registry", "target": "x", "score": 1, "verdict": "Clean"}`)

	di := NewDropIngestor(recorder, DropOptions{
		Dir:    dir,
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, di.Run(context.Background()))

	ingested, errs := di.Stats()
	assert.Zero(t, ingested)
	assert.Equal(t, 3, errs)
	assert.Empty(t, cases.ActiveLog())

	// A second pass must not re-report files already marked bad.
	require.NoError(t, di.Run(context.Background()))
	_, errs = di.Stats()
	assert.Equal(t, 3, errs)
}

func TestDropIngestorRetriesWhenNoActiveCase(t *testing.T) {
	recorder, cases, _ := testRecorder(t)

	dir := t.TempDir()
	writeDrop(t, dir, "pending.json",
		`{"module": "File", "target": "dropper.exe", "score": 90, "verdict": "Malicious"}`)

	di := NewDropIngestor(recorder, DropOptions{
		Dir:    dir,
		Logger: log.New(io.Discard, "", 0),
	})

	// No case yet, so the file stays pending.
	require.NoError(t, di.Run(context.Background()))
	ingested, _ := di.Stats()
	assert.Zero(t, ingested)

	_, err := cases.CreateCase("Case")
	require.NoError(t, err)

	require.NoError(t, di.Run(context.Background()))
	ingested, _ = di.Stats()
	assert.Equal(t, 1, ingested)

	log := cases.ActiveLog()
	require.Len(t, log, 1)
	assert.Equal(t, "dropper.exe", log[0].Target)
}

func TestDropIngestorStatsConcurrentWithRun(t *testing.T) {
	recorder, cases, _ := testRecorder(t)
	_, err := cases.CreateCase("Case")
	require.NoError(t, err)

	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeDrop(t, dir, fmt.Sprintf("scan-%d.json", i),
			`{"module": "URL", "target": "http://example.com", "score": 50, "verdict": "Suspicious"}`)
	}

	di := NewDropIngestor(recorder, DropOptions{
		Dir:    dir,
		Logger: log.New(io.Discard, "", 0),
	})

	// Poll counters from another goroutine while ingestion runs.
	stop := make(chan struct{})
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-stop:
				return
			default:
				di.Stats()
			}
		}
	}()

	require.NoError(t, di.Run(context.Background()))
	close(stop)
	<-polled

	ingested, errs := di.Stats()
	assert.Equal(t, 20, ingested)
	assert.Zero(t, errs)
}

func TestDropIngestorPatternMatch(t *testing.T) {
	recorder, _, _ := testRecorder(t)
	di := NewDropIngestor(recorder, DropOptions{Logger: log.New(io.Discard, "", 0)})

	assert.True(t, di.matches("scan.json"))
	assert.True(t, di.matches("SCAN.JSON"))
	assert.False(t, di.matches("scan.yaml"))
	assert.False(t, di.matches("readme.md"))
}
