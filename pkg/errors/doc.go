// Package errors provides structured error handling with error codes for storeauth.
//
// Every flow outcome is modeled as a structured Error carrying a typed
// ErrorCode, a user-safe message, and optional details (for example the
// remaining throttle seconds). Callers at the HTTP boundary switch on the
// code rather than matching message strings.
//
// Creating errors:
//
//	err := errors.New(errors.ErrCodeAccountNotFound, "account not found")
//	err := errors.Throttled(42)
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to query accounts")
//
// Inspecting errors:
//
//	if errors.IsCode(err, errors.ErrCodeThrottled) {
//		wait := errors.RemainingSeconds(err)
//		...
//	}
//
// HTTP handlers use HTTPStatusCode / MapErrorCodeToHTTPStatus to translate
// codes into response statuses. Internal persistence and infrastructure
// failures are wrapped as ErrCodeInternal so storage details never leak to
// clients.
package errors
