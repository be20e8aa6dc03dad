// Package statsview serves live runtime statistics while the stimulus runs.
// It is only functional when built with the statsview tag:
//
//	go build -tags statsview ./cmd/stimulus
//
// Graphs are then served at <addr>/debug/statsview and pprof at
// <addr>/debug/pprof/. Garbage collector pauses show up there as the cause of
// skipped frames.
package statsview

// DefaultAddress is used when an empty address is passed to Launch.
const DefaultAddress = "localhost:12600"

const path = "/debug/statsview"
