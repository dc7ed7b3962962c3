package evidence

import (
	"fmt"
	"strings"
)

// Module identifies which analysis module produced a piece of evidence.
// The set is closed: the backend exposes exactly these four analyzers.
type Module string

const (
	ModuleURL     Module = "URL"
	ModuleEmail   Module = "Email"
	ModuleFile    Module = "File"
	ModuleBrowser Module = "Browser"
)

// BrowserTarget is the sentinel target recorded for browser scans,
// which take no analyst-supplied input.
const BrowserTarget = "System Browser"

// Modules lists all analysis modules in menu order.
func Modules() []Module {
	return []Module{ModuleURL, ModuleEmail, ModuleFile, ModuleBrowser}
}

// ParseModule resolves a case-insensitive module name.
func ParseModule(s string) (Module, error) {
	for _, m := range Modules() {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown analysis module %q", s)
}

// Record is the immutable result of one completed scan. Once built by the
// ingestion pipeline it is never mutated; the case log only ever prepends.
type Record struct {
	ID        int64    `json:"id"`
	Module    Module   `json:"module"`
	Target    string   `json:"target"`
	Timestamp string   `json:"timestamp"`
	Score     int      `json:"score"`
	Verdict   string   `json:"verdict"`
	Details   []string `json:"details"`
}
