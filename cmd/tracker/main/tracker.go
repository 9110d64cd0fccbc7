package main

// This file intentionally minimal so that the tracker binary
// can be imported and executed elsewhere. Main content of the
// CLI is in cmd/tracker.go.

import "github.com/gymtrack/occupancy-data/cmd/tracker"

// Version content of this constant will be set at build time,
// using -ldflags, using output of the `git describe` command.
var Version = "undefined"

func main() {
	tracker.Run(tracker.BuildFlags{
		Version: Version,
	})
}
