package contracts

import "errors"

// Error kinds shared by every stage of a scan tick.
// Wrap with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrDataFetch: provider timeout/auth/rate-limit. The tick is abandoned.
	ErrDataFetch = errors.New("data fetch failed")

	// ErrEnrichment: one ticker lacks fields for gap/RVOL/ATR. Only that ticker is dropped.
	ErrEnrichment = errors.New("enrichment failed")

	// ErrScoring: composite scoring failed for the batch. Selection falls back.
	ErrScoring = errors.New("scoring failed")

	// ErrPersistence: a record could not be written. Logged, retried next tick.
	ErrPersistence = errors.New("persistence failed")

	// ErrConfig: missing or malformed configuration. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidSnapshot: a provider record failed normalization.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
