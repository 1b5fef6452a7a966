// Package engine drives the realized plan to completion. The loop is
// single-threaded and strictly sequential: entries run one at a time in
// priority order, and evidence written at position k is visible to every
// gating decision at positions k+1..n. Before each entry the loop enforces,
// in order, the per-category cumulative budget, prerequisite satisfaction,
// the global scan deadline, and duplicate detection. Deadline breaches,
// duplicates, and entries outside the frozen ledger are architecture
// violations and abort the scan; tool skips, non-zero exits, timeouts, and
// extraction failures are operational and become execution records.
//
// One concession to concurrency exists: an optional auxiliary
// evidence-gathering function runs on a background goroutine started at the
// top of Run and is joined before the first payload-class dispatch. The
// hand-off is cooperative; the evidence store has exactly one writer.
package engine
