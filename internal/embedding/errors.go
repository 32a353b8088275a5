package embedding

import "errors"

// Sentinel errors for remote embedding calls. Codec.Embed never returns
// them; they surface through logs, metrics and provider-level tests.
var (
	// ErrProviderUnavailable indicates the remote provider failed or timed out.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrMalformedResponse indicates the provider answered with a body
	// that does not contain a usable vector.
	ErrMalformedResponse = errors.New("malformed embedding response")

	// ErrNotConfigured indicates no remote endpoint or key is configured.
	ErrNotConfigured = errors.New("embedding provider not configured")
)
