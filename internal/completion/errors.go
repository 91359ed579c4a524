package completion

import "fmt"

// ValidationError reports a request that was malformed before any network
// call was made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "completion: " + e.Msg }

// AuthError reports a rejected or missing API key.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	if e.Msg == "" {
		return "completion: invalid API key"
	}
	return "completion: " + e.Msg
}

// RateLimitError reports that the provider rate-limited the request and no
// different fallback model was available to retry with.
type RateLimitError struct {
	Model string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("completion: rate limited on model %s", e.Model)
}

// RequestError reports a request the provider rejected for reasons other
// than auth or rate limiting. PossibleModelMismatch is set when the
// provider's message suggests the model name was not recognized.
type RequestError struct {
	Status                int
	Msg                   string
	PossibleModelMismatch bool
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("completion: request rejected (status %d): %s", e.Status, e.Msg)
}

// TimeoutError reports that a single attempt exceeded the completion
// deadline.
type TimeoutError struct {
	Model string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("completion: timed out waiting for model %s", e.Model)
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "completion: network failure: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// EmptyResponseError reports an OK response whose first choice carried no
// content.
type EmptyResponseError struct {
	Model string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("completion: model %s returned an empty response", e.Model)
}
