package main

import "github.com/matsen/journalrec/internal/pipeline"

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (runtime failure, unreachable service)
	ExitConfigError = 2 // Configuration error (bad config file, invalid setting)
	ExitDataError   = 3 // Data error (invalid manuscript or filter values)
	ExitNoResults   = 4 // Run completed without recommendations
)

// exitCodeForStatus maps an outcome status to the process exit code.
func exitCodeForStatus(s pipeline.Status) int {
	switch {
	case s == pipeline.StatusOK:
		return ExitSuccess
	case s == pipeline.StatusInvalid:
		return ExitDataError
	case s.Empty():
		return ExitNoResults
	default:
		return ExitError
	}
}
