package evidence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SakshiShukla1/forensight/internal/scan"
)

func intPtr(n int) *int { return &n }

func TestIngestBuildsRecord(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	p := NewPipeline(func() time.Time { return fixed })

	res := &scan.Result{
		Score:    intPtr(85),
		Verdict:  "Malicious",
		Findings: []string{"Domain age < 30 days", "Blacklisted"},
	}
	rec, err := p.Ingest(ModuleURL, "http://evil.example", res)
	require.NoError(t, err)

	assert.Equal(t, fixed.UnixNano(), rec.ID)
	assert.Equal(t, ModuleURL, rec.Module)
	assert.Equal(t, "http://evil.example", rec.Target)
	assert.Equal(t, "2025-03-14 09:26:53", rec.Timestamp)
	assert.Equal(t, 85, rec.Score)
	assert.Equal(t, "Malicious", rec.Verdict)
	assert.Equal(t, []string{"Domain age < 30 days", "Blacklisted"}, rec.Details)
}

func TestIngestBrowserTargetIsFixed(t *testing.T) {
	p := NewPipeline(nil)

	rec, err := p.Ingest(ModuleBrowser, "whatever the caller passed", &scan.Result{
		Score:   intPtr(10),
		Verdict: "Clean",
	})
	require.NoError(t, err)
	assert.Equal(t, BrowserTarget, rec.Target)
}

func TestIngestNilFindingsBecomeEmpty(t *testing.T) {
	p := NewPipeline(nil)

	rec, err := p.Ingest(ModuleFile, "a.exe", &scan.Result{Score: intPtr(0), Verdict: "Clean"})
	require.NoError(t, err)
	require.NotNil(t, rec.Details)
	assert.Empty(t, rec.Details)
}

func TestIngestDetailsDetachedFromResult(t *testing.T) {
	p := NewPipeline(nil)

	res := &scan.Result{
		Score:    intPtr(60),
		Verdict:  "Suspicious",
		Findings: []string{"Domain age < 30 days"},
	}
	rec, err := p.Ingest(ModuleURL, "http://example.com", res)
	require.NoError(t, err)

	res.Findings[0] = "tampered"
	assert.Equal(t, []string{"Domain age < 30 days"}, rec.Details)
}

func TestIngestIDsStrictlyIncrease(t *testing.T) {
	// A frozen clock forces the monotonic guard to take over.
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	p := NewPipeline(func() time.Time { return fixed })

	var last int64
	for i := 0; i < 5; i++ {
		rec, err := p.Ingest(ModuleURL, "http://example.com", &scan.Result{
			Score:   intPtr(50),
			Verdict: "Suspicious",
		})
		require.NoError(t, err)
		assert.Greater(t, rec.ID, last)
		last = rec.ID
	}
}

func TestIngestRejectsMalformedResults(t *testing.T) {
	p := NewPipeline(nil)

	tests := []struct {
		name string
		res  *scan.Result
	}{
		{"nil result", nil},
		{"missing score", &scan.Result{Verdict: "Clean"}},
		{"score below range", &scan.Result{Score: intPtr(-1), Verdict: "Clean"}},
		{"score above range", &scan.Result{Score: intPtr(101), Verdict: "Clean"}},
		{"missing verdict", &scan.Result{Score: intPtr(40)}},
		{"blank verdict", &scan.Result{Score: intPtr(40), Verdict: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Ingest(ModuleURL, "http://example.com", tt.res)
			require.Error(t, err)

			var malformed *MalformedResponseError
			assert.True(t, errors.As(err, &malformed), "expected MalformedResponseError, got %T", err)
		})
	}
}

func TestParseModule(t *testing.T) {
	for _, m := range Modules() {
		got, err := ParseModule(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseModule("url")
	require.NoError(t, err)
	assert.Equal(t, ModuleURL, got)

	_, err = ParseModule("registry")
	assert.Error(t, err)
}
