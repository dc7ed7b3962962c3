package caselog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SakshiShukla1/forensight/internal/evidence"
)

func rec(id int64, target string) evidence.Record {
	return evidence.Record{
		ID:        id,
		Module:    evidence.ModuleURL,
		Target:    target,
		Timestamp: "2025-03-14 09:00:00",
		Score:     50,
		Verdict:   "Suspicious",
		Details:   []string{},
	}
}

func TestCreateCaseBecomesActive(t *testing.T) {
	s := NewStore(nil)

	snap, err := s.CreateCase("Phishing wave 42")
	require.NoError(t, err)
	assert.Equal(t, "Phishing wave 42", snap.Name)
	assert.Zero(t, snap.EvidenceCount)

	active, ok := s.ActiveCase()
	require.True(t, ok)
	assert.Equal(t, snap.ID, active.ID)
}

func TestCreateCaseRejectsBlankName(t *testing.T) {
	s := NewStore(nil)
	_, err := s.CreateCase("First")
	require.NoError(t, err)
	before, _ := s.ActiveCase()

	_, err = s.CreateCase("   ")
	require.Error(t, err)

	var invalid *InvalidNameError
	assert.True(t, errors.As(err, &invalid))

	// The prior active case is untouched.
	after, ok := s.ActiveCase()
	require.True(t, ok)
	assert.Equal(t, before.ID, after.ID)
}

func TestCaseIDsStrictlyIncrease(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	s := NewStore(func() time.Time { return fixed })

	a, err := s.CreateCase("A")
	require.NoError(t, err)
	b, err := s.CreateCase("B")
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
}

func TestAppendPrependsAndSelects(t *testing.T) {
	s := NewStore(nil)
	_, err := s.CreateCase("Case")
	require.NoError(t, err)

	_, err = s.Append(rec(1, "http://first.example"))
	require.NoError(t, err)
	_, err = s.Append(rec(2, "http://second.example"))
	require.NoError(t, err)

	log := s.ActiveLog()
	require.Len(t, log, 2)
	assert.Equal(t, int64(2), log[0].ID, "newest record sits at index 0")
	assert.Equal(t, int64(1), log[1].ID)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(2), sel.ID, "append auto-selects the new record")
}

func TestAppendReportsOwningCase(t *testing.T) {
	s := NewStore(nil)
	a, err := s.CreateCase("Alpha")
	require.NoError(t, err)

	owner, err := s.Append(rec(1, "http://alpha.example"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, owner.ID)
	assert.Equal(t, 1, owner.EvidenceCount)

	// A later case does not retroactively claim the record.
	_, err = s.CreateCase("Beta")
	require.NoError(t, err)
	owner, err = s.Append(rec(2, "http://beta.example"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, owner.ID)
	assert.Equal(t, 1, owner.EvidenceCount)
}

func TestAppendWithoutActiveCase(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Append(rec(1, "http://example.com"))
	assert.Error(t, err)
}

func TestSwitchCaseRestoresLog(t *testing.T) {
	s := NewStore(nil)

	a, err := s.CreateCase("Alpha")
	require.NoError(t, err)
	_, err = s.Append(rec(1, "http://alpha.example"))
	require.NoError(t, err)

	b, err := s.CreateCase("Beta")
	require.NoError(t, err)
	assert.Empty(t, s.ActiveLog(), "new case starts with an empty log")
	_, err = s.Append(rec(2, "http://beta.example"))
	require.NoError(t, err)

	require.NoError(t, s.SwitchCase(a.ID))
	log := s.ActiveLog()
	require.Len(t, log, 1)
	assert.Equal(t, int64(1), log[0].ID)

	_, ok := s.Selected()
	assert.False(t, ok, "switching clears the selection")

	require.NoError(t, s.SwitchCase(b.ID))
	log = s.ActiveLog()
	require.Len(t, log, 1)
	assert.Equal(t, int64(2), log[0].ID)
}

func TestSwitchCaseUnknownID(t *testing.T) {
	s := NewStore(nil)
	a, err := s.CreateCase("Alpha")
	require.NoError(t, err)

	err = s.SwitchCase(a.ID + 999)
	require.Error(t, err)

	active, ok := s.ActiveCase()
	require.True(t, ok)
	assert.Equal(t, a.ID, active.ID, "failed switch leaves state unchanged")
}

func TestSelection(t *testing.T) {
	s := NewStore(nil)
	_, err := s.CreateCase("Case")
	require.NoError(t, err)
	_, err = s.Append(rec(1, "http://a.example"))
	require.NoError(t, err)
	_, err = s.Append(rec(2, "http://b.example"))
	require.NoError(t, err)

	require.True(t, s.Select(1))
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(1), sel.ID)

	assert.False(t, s.Select(77), "ids outside the active log are not selectable")

	s.ClearSelection()
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestRestoreCase(t *testing.T) {
	s := NewStore(nil)
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	log := []evidence.Record{rec(2, "http://b.example"), rec(1, "http://a.example")}

	require.NoError(t, s.RestoreCase(1234, "Archived", created, log))

	active, ok := s.ActiveCase()
	require.True(t, ok)
	assert.Equal(t, int64(1234), active.ID)
	assert.Equal(t, 2, active.EvidenceCount)

	got := s.ActiveLog()
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)

	assert.Error(t, s.RestoreCase(1234, "Archived", created, nil), "double restore is rejected")
	assert.Error(t, s.RestoreCase(5678, " ", created, nil))
}
