// Package report renders a case's evidence log into the canonical
// plain-text export document. Generation is a pure function of the case,
// the log, and the export time.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/evidence"
)

const (
	titleLine       = "FORENSIGHT CASE EVIDENCE REPORT"
	headerSeparator = "=================================================="
	blockSeparator  = "--------------------------------------------------"

	// GeneratedLayout formats the export wall-clock time. Capture
	// timestamps inside blocks reuse the stored string untouched.
	GeneratedLayout = "2006-01-02 15:04:05"
)

// EmptyLogError reports an export request against a case with no
// evidence. It is a user-visible guard, not a crash.
type EmptyLogError struct {
	CaseID int64
}

func (e *EmptyLogError) Error() string {
	return fmt.Sprintf("case %d has no evidence to export", e.CaseID)
}

// Filename returns the deterministic export artifact name for a case.
func Filename(caseID int64) string {
	return fmt.Sprintf("Case_%d_Report.txt", caseID)
}

// Generate renders the report document. The log must already be ordered
// most recent first; evidence blocks are numbered L..1 so the newest
// record carries the highest number and numbering never shifts when
// later evidence is added above it.
func Generate(c caselog.Snapshot, log []evidence.Record, now time.Time) (string, error) {
	if len(log) == 0 {
		return "", &EmptyLogError{CaseID: c.ID}
	}

	var b strings.Builder
	b.WriteString(titleLine + "\n")
	fmt.Fprintf(&b, "CASE ID: %d\n", c.ID)
	fmt.Fprintf(&b, "CASE NAME: %s\n", c.Name)
	fmt.Fprintf(&b, "GENERATED: %s\n", now.Format(GeneratedLayout))
	b.WriteString(headerSeparator + "\n")
	b.WriteString("\n")

	total := len(log)
	for i, rec := range log {
		fmt.Fprintf(&b, "EVIDENCE #%d [%s]\n", total-i, rec.Module)
		fmt.Fprintf(&b, "Target: %s\n", rec.Target)
		fmt.Fprintf(&b, "Verdict: %s (Risk: %d%%)\n", rec.Verdict, rec.Score)
		fmt.Fprintf(&b, "Timestamp: %s\n", rec.Timestamp)
		fmt.Fprintf(&b, "Details: %s\n", strings.Join(rec.Details, ", "))
		b.WriteString(blockSeparator + "\n")
	}

	return b.String(), nil
}

// Write generates the report and saves it under dir using the
// deterministic filename. The directory is created if missing.
func Write(dir string, c caselog.Snapshot, log []evidence.Record, now time.Time) (string, error) {
	doc, err := Generate(c, log, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, Filename(c.ID))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
