// Package evidence accumulates what the running scan learns about the
// target: normalized endpoints, the confirmed-live subset, parameter names
// with heuristic taint tags, discovered ports, and free-form signal tags.
//
// The store is single-writer: the orchestration loop feeds it between plan
// entries, and every gating decision thereafter reads it. Growth is
// monotonic — nothing is ever removed. All endpoint insertion routes through
// Normalize so no logical endpoint has two string representations.
//
// The Graph refines the store: each endpoint owns its HTTP methods and
// parameter references, each parameter owns its endpoint set, discovery
// provenance, and taint flags. It is append-only until finalized; taint
// queries are stable afterwards.
package evidence
