package researcher

import "errors"

// Error taxonomy for a research run. Every step validates its inputs
// eagerly and wraps one of these sentinels so callers can classify
// failures with errors.Is.
var (
	// ErrMissingInput indicates a required state field was empty when a
	// step started (topic, search query, summary, ...).
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidResponse indicates an external call returned an empty,
	// non-JSON, or schema-mismatched payload. The wrapped message carries
	// the offending content for diagnostics.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrExternalCall indicates the language-model or search call itself
	// failed (network, auth, rate limit).
	ErrExternalCall = errors.New("external call failed")
)
