// Package clock funnels time lookups through a stubbable function so tests
// can freeze the scheduler's notion of now.
package clock

import "time"

// NowFunc returns the current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
