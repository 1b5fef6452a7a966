package journal

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/webstrike/state"
)

func newTestJournal(t *testing.T) *RedisJournal {
	t.Helper()

	mr := miniredis.RunT(t)
	j, err := NewRedis(context.Background(), RedisOptions{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{URL: "not a url"})
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestPublishRecord_RoundTrip(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	first := state.Record{
		Operation:      "http_probe",
		Phase:          "probe",
		BudgetCategory: "probe",
		Command:        "httpx -u https://example.com",
		Dispatched:     true,
		Outcome:        state.OutcomeSignal,
		Duration:       2 * time.Second,
	}
	second := state.Record{
		Operation:  "xss_scan",
		Phase:      "payload",
		Dispatched: false,
		Reason:     "no reflected parameters",
	}

	require.NoError(t, j.PublishRecord(ctx, "scan-1", first))
	require.NoError(t, j.PublishRecord(ctx, "scan-1", second))
	require.NoError(t, j.PublishRecord(ctx, "scan-2", state.Record{Operation: "port_scan"}))

	records, err := j.Records(ctx, "scan-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "http_probe", records[0].Operation)
	assert.Equal(t, state.OutcomeSignal, records[0].Outcome)
	assert.Equal(t, "xss_scan", records[1].Operation)
	assert.False(t, records[1].Dispatched)

	other, err := j.Records(ctx, "scan-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "port_scan", other[0].Operation)
}

func TestRecords_EmptyScan(t *testing.T) {
	j := newTestJournal(t)

	records, err := j.Records(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPublishSummary_RoundTrip(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	s := &state.ScanState{
		ID:        "scan-9",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Records: []state.Record{
			{Operation: "dns_resolve", Dispatched: true, Outcome: state.OutcomeSignal},
		},
	}
	require.NoError(t, j.PublishSummary(ctx, s))

	loaded, err := j.Summary(ctx, "scan-9")
	require.NoError(t, err)
	assert.Equal(t, "scan-9", loaded.ID)
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, "dns_resolve", loaded.Records[0].Operation)
}

func TestSummary_Missing(t *testing.T) {
	j := newTestJournal(t)

	_, err := j.Summary(context.Background(), "never-ran")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var j Journal = Nop{}

	assert.NoError(t, j.PublishRecord(context.Background(), "x", state.Record{}))
	assert.NoError(t, j.PublishSummary(context.Background(), &state.ScanState{}))
	assert.NoError(t, j.Close())
}
