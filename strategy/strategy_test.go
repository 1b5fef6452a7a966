package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/target"
)

func planFor(t *testing.T, input string) ([]PlanEntry, *ledger.Ledger) {
	t.Helper()
	id, err := target.Classify(input)
	require.NoError(t, err)
	l, err := ledger.Build(id)
	require.NoError(t, err)
	s, err := ForCategory(id.Category())
	require.NoError(t, err)
	require.Equal(t, id.Category(), s.Category())
	plan, err := s.Plan(l)
	require.NoError(t, err)
	return plan, l
}

func operations(plan []PlanEntry) []string {
	out := make([]string, len(plan))
	for i, e := range plan {
		out[i] = e.Operation
	}
	return out
}

func TestForCategory_Unknown(t *testing.T) {
	_, err := ForCategory(target.Category("weird"))
	assert.Error(t, err)
}

func TestPlan_NeverContainsDeniedOperations(t *testing.T) {
	for _, input := range []string{"93.184.216.34", "example.com", "api.example.com", "http://example.com"} {
		t.Run(input, func(t *testing.T) {
			plan, l := planFor(t, input)
			for _, e := range plan {
				allowed, err := l.Allows(e.Operation)
				require.NoError(t, err)
				assert.True(t, allowed, "%s appears in plan but is not allowed", e.Operation)
			}
		})
	}
}

func TestPlan_NeverRepeatsOperations(t *testing.T) {
	for _, input := range []string{"93.184.216.34", "example.com", "api.example.com"} {
		t.Run(input, func(t *testing.T) {
			plan, _ := planFor(t, input)
			seen := make(map[string]bool)
			for _, e := range plan {
				assert.False(t, seen[e.Operation], "duplicate %s", e.Operation)
				seen[e.Operation] = true
			}
		})
	}
}

func TestPlan_CategoryShapes(t *testing.T) {
	plan, _ := planFor(t, "example.com")
	assert.Contains(t, operations(plan), ops.SubdomainEnum,
		"root name plans include name enumeration")
	assert.Contains(t, operations(plan), ops.DNSResolve)

	plan, _ = planFor(t, "api.example.com")
	assert.NotContains(t, operations(plan), ops.SubdomainEnum,
		"derived name plans stay scoped to the host")
	assert.Contains(t, operations(plan), ops.DNSResolve)

	plan, _ = planFor(t, "93.184.216.34")
	assert.NotContains(t, operations(plan), ops.SubdomainEnum)
	assert.NotContains(t, operations(plan), ops.DNSResolve,
		"network address plans omit name operations")
}

func TestPlan_PhaseOrdering(t *testing.T) {
	plan, _ := planFor(t, "example.com")

	rank := map[string]int{PhaseRecon: 0, PhaseDiscovery: 1, PhasePayload: 2}
	last := 0
	for _, e := range plan {
		r, ok := rank[e.Phase]
		require.True(t, ok, "unknown phase %q", e.Phase)
		assert.GreaterOrEqual(t, r, last, "%s out of phase order", e.Operation)
		if r > last {
			last = r
		}
	}
}

func TestPlan_EntryMetadata(t *testing.T) {
	plan, l := planFor(t, "example.com")
	for i, e := range plan {
		assert.Equal(t, i, e.Priority)
		assert.Positive(t, e.Timeout, "%s has no timeout", e.Operation)
		assert.NotEmpty(t, e.Binary)
		assert.NotEmpty(t, e.BudgetCategory)
		assert.Contains(t, e.Template, "{{target}}")

		prereqs, err := l.Prerequisites(e.Operation)
		require.NoError(t, err)
		assert.ElementsMatch(t, prereqs, e.Prerequisites)
	}
}

func TestPlan_PlainHTTPDropsTLS(t *testing.T) {
	plan, _ := planFor(t, "http://example.com")
	assert.NotContains(t, operations(plan), ops.TLSScan)
}
