package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/SakshiShukla1/forensight/internal/evidence"
	"github.com/SakshiShukla1/forensight/internal/scan"
)

// DropOptions controls drop-folder ingestion behavior.
type DropOptions struct {
	Dir      string
	Watch    bool
	Patterns []string // default []string{"*.json"}
	Logger   *log.Logger

	// OnIngest, when set, is invoked after each successful ingest (used
	// by the TUI to redraw the evidence table).
	OnIngest func(evidence.Record)
}

// dropFile is the offline scan-result shape analysts (or the backend's
// batch export) drop into the watched directory.
type dropFile struct {
	Module   string   `json:"module"`
	Target   string   `json:"target"`
	Score    *int     `json:"score"`
	Verdict  string   `json:"verdict"`
	Findings []string `json:"findings_list"`
}

// DropIngestor ingests offline scan results from a directory, one-shot
// or in watch mode. A file is ingested at most once; unparseable files
// are marked and skipped on later passes.
type DropIngestor struct {
	recorder *Recorder
	opts     DropOptions

	mu        sync.Mutex
	processed map[string]bool

	ingested int
	errors   int
}

// NewDropIngestor constructs a drop-folder ingestor.
func NewDropIngestor(recorder *Recorder, opts DropOptions) *DropIngestor {
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[ingest-drop] ", log.LstdFlags)
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"*.json"}
	}
	return &DropIngestor{
		recorder:  recorder,
		opts:      opts,
		processed: make(map[string]bool),
	}
}

// Run executes the ingestion per options (one-shot or watch).
func (di *DropIngestor) Run(ctx context.Context) error {
	if err := di.scanOnce(ctx); err != nil {
		return err
	}

	if !di.opts.Watch {
		ingested, errs := di.Stats()
		di.opts.Logger.Printf("Completed one-shot ingest: ingested=%d errors=%d", ingested, errs)
		return nil
	}

	return di.watchLoop(ctx)
}

func (di *DropIngestor) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range di.opts.Patterns {
		if ok, _ := filepath.Match(strings.ToLower(strings.TrimSpace(pat)), lower); ok {
			return true
		}
	}
	return false
}

func (di *DropIngestor) scanOnce(ctx context.Context) error {
	entries, err := os.ReadDir(di.opts.Dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !di.matches(e.Name()) {
			continue
		}
		path := filepath.Join(di.opts.Dir, e.Name())
		if err := di.processFile(ctx, path); err != nil {
			di.opts.Logger.Printf("error processing %s: %v", path, err)
			di.countError()
		}
	}
	return nil
}

func (di *DropIngestor) processFile(ctx context.Context, path string) error {
	di.mu.Lock()
	done := di.processed[path]
	di.mu.Unlock()
	if done {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var df dropFile
	if err := json.Unmarshal(data, &df); err != nil {
		di.markProcessed(path)
		return fmt.Errorf("parse: %w", err)
	}

	module, err := evidence.ParseModule(df.Module)
	if err != nil {
		di.markProcessed(path)
		return err
	}

	res := &scan.Result{Score: df.Score, Verdict: df.Verdict, Findings: df.Findings}
	rec, err := di.recorder.Record(ctx, module, df.Target, res)
	if err != nil {
		// A missing active case resolves once the analyst opens one;
		// keep the file eligible for the next pass.
		var malformed *evidence.MalformedResponseError
		if errors.As(err, &malformed) {
			di.markProcessed(path)
		}
		return err
	}

	di.mu.Lock()
	di.processed[path] = true
	di.ingested++
	di.mu.Unlock()
	di.opts.Logger.Printf("Ingested %s evidence %d from %s", rec.Module, rec.ID, filepath.Base(path))

	if di.opts.OnIngest != nil {
		di.opts.OnIngest(rec)
	}
	return nil
}

func (di *DropIngestor) markProcessed(path string) {
	di.mu.Lock()
	di.processed[path] = true
	di.mu.Unlock()
}

func (di *DropIngestor) countError() {
	di.mu.Lock()
	di.errors++
	di.mu.Unlock()
}

func (di *DropIngestor) watchLoop(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer w.Close()

	if err := w.Add(di.opts.Dir); err != nil {
		return fmt.Errorf("watch add: %w", err)
	}

	di.opts.Logger.Printf("Watching directory: %s (patterns: %s)", di.opts.Dir, strings.Join(di.opts.Patterns, ","))

	// Periodic rescan catches files fsnotify missed (network mounts,
	// editors that write via rename) and retries deferred files.
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !di.matches(filepath.Base(ev.Name)) {
				continue
			}
			if err := di.processFile(ctx, ev.Name); err != nil {
				di.opts.Logger.Printf("error processing %s: %v", ev.Name, err)
				di.countError()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			di.opts.Logger.Printf("watch error: %v", err)
		case <-ticker.C:
			if err := di.scanOnce(ctx); err != nil {
				di.opts.Logger.Printf("rescan error: %v", err)
			}
		}
	}
}

// Stats returns ingest/error counters for status display.
func (di *DropIngestor) Stats() (ingested, errs int) {
	di.mu.Lock()
	defer di.mu.Unlock()
	return di.ingested, di.errors
}
