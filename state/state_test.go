package state

import (
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/strategy"
	"github.com/zero-day-ai/webstrike/target"
)

func newState(t *testing.T) *ScanState {
	t.Helper()
	id, err := target.Classify("example.com")
	require.NoError(t, err)
	l, err := ledger.Build(id)
	require.NoError(t, err)
	s, err := strategy.ForCategory(id.Category())
	require.NoError(t, err)
	plan, err := s.Plan(l)
	require.NoError(t, err)
	return New(id, l, plan)
}

func TestNew_CapturesSnapshot(t *testing.T) {
	s := newState(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, target.CategoryRootName, s.Identity.Category)
	assert.Equal(t, "example.com", s.Identity.Host)
	assert.Len(t, s.Ledger, len(ops.Known()), "ledger snapshot is total")
	assert.NotEmpty(t, s.Plan)
}

func TestOutcome_Usable(t *testing.T) {
	assert.True(t, OutcomeSignal.Usable())
	assert.False(t, OutcomeNoSignal.Usable(), "ran without error is not usable evidence")
	assert.False(t, OutcomeTimedOut.Usable())
	assert.False(t, OutcomeError.Usable())
}

func TestRollup(t *testing.T) {
	s := newState(t)

	s.AddRecord(Record{Operation: ops.PortScan, Dispatched: true, Outcome: OutcomeSignal})
	s.AddRecord(Record{Operation: ops.TLSScan, Dispatched: true, Outcome: OutcomeNoSignal})
	s.AddRecord(Record{Operation: ops.Crawl, Dispatched: true, Outcome: OutcomeSignal})
	s.AddRecord(Record{Operation: ops.DirFuzz, Dispatched: true, Outcome: OutcomeTimedOut})
	s.AddRecord(Record{Operation: ops.XSSScan, Dispatched: false, Reason: "no evidence"})

	s.Rollup()

	recon := s.Stats[ops.ClassRecon]
	assert.Equal(t, 2, recon.Dispatched)
	assert.Equal(t, 1, recon.Signal)
	assert.InDelta(t, 0.5, recon.Confidence, 1e-9)

	discovery := s.Stats[ops.ClassDiscovery]
	assert.Equal(t, 2, discovery.Dispatched)
	assert.Equal(t, 1, discovery.TimedOut)

	// Skipped entries never count toward confidence.
	_, ok := s.Stats[ops.ClassPayload]
	assert.False(t, ok)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newState(t)
	s.AddRecord(Record{
		Operation:      ops.PortScan,
		Phase:          strategy.PhaseRecon,
		BudgetCategory: ops.BudgetRecon,
		Command:        "nmap -Pn example.com",
		Dispatched:     true,
		Outcome:        OutcomeSignal,
		Reason:         "open ports found",
		Duration:       3 * time.Second,
	})
	s.Rollup()
	s.EndedAt = time.Now().UTC()

	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, s.Identity, loaded.Identity)
	assert.Len(t, loaded.Records, 1)
	assert.Equal(t, OutcomeSignal, loaded.Records[0].Outcome)
	assert.Equal(t, 3*time.Second, loaded.Records[0].Duration)
	assert.Len(t, loaded.Ledger, len(ops.Known()))
	assert.Equal(t, len(s.Plan), len(loaded.Plan))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate([]byte("short"), 100))

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	out := Truncate(long, 0)
	assert.Less(t, len(out), 3000)
	assert.Contains(t, out, "[truncated]")
}

func TestTruncate_NeverSplitsRunes(t *testing.T) {
	// Cut points landing inside the multi-byte runes must back off to the
	// previous boundary instead of embedding a partial sequence.
	raw := []byte("abé世界") // 2 + 2 + 3 + 3 bytes
	for max := 1; max <= len(raw); max++ {
		out := Truncate(raw, max)
		assert.True(t, utf8.ValidString(out), "max=%d produced invalid UTF-8: %q", max, out)
	}

	assert.Equal(t, "ab... [truncated]", Truncate(raw, 3), "cut inside the two-byte rune backs off")
}
