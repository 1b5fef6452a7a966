// Package webstrike is the admission-control core for web security scans.
// It classifies a target into an immutable identity, precomputes a frozen
// per-operation decision ledger, realizes an ordered plan through the
// category's execution strategy, and drives the plan through a sequential
// orchestration loop that gates every dispatch on accumulated evidence.
//
// The typical entry point is the Scanner facade:
//
//	scanner, err := webstrike.New(
//		webstrike.WithLogger(logger),
//		webstrike.WithStateDir("/var/lib/webstrike"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	scan, err := scanner.Scan(ctx, "api.example.com")
//
// The scan result carries the full decision ledger snapshot, the realized
// plan, one execution record per plan entry, and the evidence summary, so a
// report can explain exactly why every operation ran or was refused.
//
// The external scanning tools themselves, report rendering, and severity
// scoring live outside this module; the core hands a materialized command to
// an exec.Runner and interprets the timed, classified result it gets back.
package webstrike
