package errors

import (
	"errors"
	"fmt"
)

// New creates a new Error with the specified code and message.
// Use this for creating errors without an underlying cause.
//
// Example:
//
//	err := errors.New(errors.CodeValidation, "caller id is required")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the specified code and formatted message.
// Use this for creating errors with dynamic content in the message.
//
// Example:
//
//	err := errors.Newf(errors.CodeNotFoundUser, "user %q not found", userID)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrap returns nil.
//
// Example:
//
//	rec, err := store.Get(ctx, id)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeInternalDatabase, "failed to load proxy token")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrapf returns nil.
//
// Example:
//
//	err := errors.Wrapf(err, errors.CodeInternalDatabase, "failed to load proxy token %q", id)
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// Validation creates a new validation error.
// This is a convenience function equivalent to New(CodeValidation, message).
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// NotFound creates a new not found error.
// This is a convenience function equivalent to New(CodeNotFound, message).
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a new not found error with a formatted message.
//
// Example:
//
//	err := errors.NotFoundf("no proxy token stored for caller %q", callerID)
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Unauthorized creates a new authentication error.
// Use this when authentication fails (invalid or missing credentials).
//
// Example:
//
//	err := errors.Unauthorized("Authentication token is missing.")
func Unauthorized(message string) *Error {
	return New(CodeAuthentication, message)
}

// Forbidden creates a new authorization error.
// Use this when the IAM service denies access for an action.
//
// Example:
//
//	err := errors.Forbidden("route not permitted for role")
func Forbidden(message string) *Error {
	return New(CodeAuthorization, message)
}

// Conflict creates a new conflict error.
// Use this when an operation conflicts with the current state.
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// ServiceToken creates a new service-token acquisition error.
// Use this when the IAM authentication endpoint rejects a service-token
// request.
//
// Example:
//
//	err := errors.ServiceToken("service token request returned 403")
func ServiceToken(message string) *Error {
	return New(CodeTokenService, message)
}

// ServiceTokenf creates a new service-token error with a formatted message.
func ServiceTokenf(format string, args ...any) *Error {
	return Newf(CodeTokenService, format, args...)
}

// TokenGeneration creates a new token-exchange error.
// Use this when a proxy-token or user-token exchange fails.
//
// Example:
//
//	err := errors.TokenGeneration("proxy authorization token exchange failed")
func TokenGeneration(message string) *Error {
	return New(CodeTokenGeneration, message)
}

// TokenGenerationf creates a new token-exchange error with a formatted message.
func TokenGenerationf(format string, args ...any) *Error {
	return Newf(CodeTokenGeneration, format, args...)
}

// Internal creates a new internal error.
// Use this for unexpected system failures that should not expose details to users.
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates a new internal error with a formatted message.
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Configuration creates a new configuration error.
// Use this for invalid or missing startup configuration; callers typically
// treat these as fatal.
//
// Example:
//
//	err := errors.Configuration("IAM_BASE_URL is not set")
func Configuration(message string) *Error {
	return New(CodeInternalConfiguration, message)
}

// Configurationf creates a new configuration error with a formatted message.
func Configurationf(format string, args ...any) *Error {
	return Newf(CodeInternalConfiguration, format, args...)
}

// Unavailable creates a new service unavailable error.
// Use this when a service or dependency is temporarily unavailable.
func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

// Timeout creates a new timeout error.
// Use this when an operation exceeds its time limit.
func Timeout(message string) *Error {
	return New(CodeTimeout, message)
}

// FromError converts a standard error to an Error.
// If the error is already an *Error, it is returned as-is.
// Otherwise, it is wrapped as an internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
