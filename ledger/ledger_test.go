package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
	"github.com/zero-day-ai/webstrike/target"
)

func mustIdentity(t *testing.T, input string) *target.Identity {
	t.Helper()
	id, err := target.Classify(input)
	require.NoError(t, err)
	return id
}

func TestBuild_IsTotal(t *testing.T) {
	for _, input := range []string{"93.184.216.34", "example.com", "api.example.com"} {
		t.Run(input, func(t *testing.T) {
			l, err := Build(mustIdentity(t, input))
			require.NoError(t, err)

			require.Len(t, l.Operations(), len(ops.Known()))
			for _, op := range ops.Known() {
				d, err := l.Decision(op.ID)
				require.NoError(t, err)
				assert.True(t, d.IsValid(), "%s has invalid decision", op.ID)

				reason, err := l.Reason(op.ID)
				require.NoError(t, err)
				assert.NotEmpty(t, reason, "%s has no justification", op.ID)

				timeout, err := l.Timeout(op.ID)
				require.NoError(t, err)
				assert.Positive(t, timeout)
			}
		})
	}
}

func TestBuild_CategoryRules(t *testing.T) {
	tests := []struct {
		input     string
		operation string
		decision  Decision
	}{
		{"93.184.216.34", ops.DNSResolve, Deny},
		{"example.com", ops.DNSResolve, Allow},
		{"api.example.com", ops.DNSResolve, Allow},
		{"example.com", ops.SubdomainEnum, Allow},
		{"api.example.com", ops.SubdomainEnum, Deny},
		{"93.184.216.34", ops.SubdomainEnum, Deny},
		{"example.com", ops.TLSScan, Allow},
		{"example.com", ops.XSSScan, Conditional},
		{"example.com", ops.SQLIScan, Conditional},
		{"example.com", ops.CMDIScan, Conditional},
		{"example.com", ops.SSRFProbe, Conditional},
		{"example.com", ops.TemplateScan, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.operation, func(t *testing.T) {
			l, err := Build(mustIdentity(t, tt.input))
			require.NoError(t, err)
			d, err := l.Decision(tt.operation)
			require.NoError(t, err)
			assert.Equal(t, tt.decision, d)
		})
	}
}

func TestBuild_TLSDeniedForPlainHTTP(t *testing.T) {
	l, err := Build(mustIdentity(t, "http://example.com"))
	require.NoError(t, err)
	denied, err := l.Denies(ops.TLSScan)
	require.NoError(t, err)
	assert.True(t, denied)
}

func TestBuild_HTTPProbePrerequisitesByCategory(t *testing.T) {
	l, err := Build(mustIdentity(t, "example.com"))
	require.NoError(t, err)
	prereqs, err := l.Prerequisites(ops.HTTPProbe)
	require.NoError(t, err)
	assert.Equal(t, []string{ops.DNSResolve}, prereqs)

	l, err = Build(mustIdentity(t, "93.184.216.34"))
	require.NoError(t, err)
	prereqs, err = l.Prerequisites(ops.HTTPProbe)
	require.NoError(t, err)
	assert.Empty(t, prereqs)
}

func TestBuilder_AddAfterFreezeFails(t *testing.T) {
	l, err := Build(mustIdentity(t, "example.com"))
	require.NoError(t, err)
	_ = l

	b := NewBuilder()
	for i, op := range ops.Known() {
		require.NoError(t, b.Add(Entry{
			Operation: op.ID,
			Decision:  Allow,
			Reason:    "test",
			Priority:  i,
			Timeout:   time.Minute,
		}))
	}
	_, err = b.Freeze()
	require.NoError(t, err)

	err = b.Add(Entry{Operation: ops.PortScan, Decision: Allow, Reason: "late"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrLedgerFrozen))
	assert.True(t, scanerr.IsViolation(err))
}

func TestBuilder_RejectsUnknownAndDuplicate(t *testing.T) {
	b := NewBuilder()

	err := b.Add(Entry{Operation: "banner_grab", Decision: Allow, Reason: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrUnledgeredOperation))

	require.NoError(t, b.Add(Entry{
		Operation: ops.PortScan, Decision: Allow, Reason: "x", Timeout: time.Minute,
	}))
	err = b.Add(Entry{Operation: ops.PortScan, Decision: Deny, Reason: "again"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrDuplicateOperation))
}

func TestBuilder_FreezeRequiresTotality(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(Entry{
		Operation: ops.PortScan, Decision: Allow, Reason: "x", Timeout: time.Minute,
	}))
	_, err := b.Freeze()
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrUnledgeredOperation))
}

func TestLedger_UnledgeredQueriesFail(t *testing.T) {
	l, err := Build(mustIdentity(t, "example.com"))
	require.NoError(t, err)

	_, err = l.Allows("banner_grab")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrUnledgeredOperation))
	assert.True(t, scanerr.IsViolation(err))

	_, err = l.Denies("banner_grab")
	assert.Error(t, err)
	_, err = l.Reason("banner_grab")
	assert.Error(t, err)
	_, err = l.Prerequisites("banner_grab")
	assert.Error(t, err)
	_, err = l.Timeout("banner_grab")
	assert.Error(t, err)
}

func TestLedger_SnapshotIsDetached(t *testing.T) {
	l, err := Build(mustIdentity(t, "example.com"))
	require.NoError(t, err)

	snap := l.Snapshot()
	require.Contains(t, snap, ops.Crawl)
	entry := snap[ops.Crawl]
	if len(entry.Prerequisites) > 0 {
		entry.Prerequisites[0] = "tampered"
	}

	prereqs, err := l.Prerequisites(ops.Crawl)
	require.NoError(t, err)
	assert.NotContains(t, prereqs, "tampered")
}

func TestBuild_Deterministic(t *testing.T) {
	id := mustIdentity(t, "example.com")
	a, err := Build(id)
	require.NoError(t, err)
	b, err := Build(id)
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}
