// Package errors provides standardized error types and error handling
// utilities for the platform common libraries. It defines the error
// categories shared by every service, machine-readable error codes, and
// helpers for creating, wrapping, and inspecting errors.
//
// # Error Categories
//
// The package defines the failure categories the platform cares about:
//
//   - Validation errors: Invalid input, missing required fields
//   - Authentication errors: Invalid credentials, missing auth tokens
//   - Authorization errors: Access denied by the IAM service
//   - NotFound errors: Resource or user does not exist
//   - Conflict errors: Resource already exists, version mismatch
//   - Token errors: Service or proxy token acquisition failures
//   - Internal errors: Unexpected system failures, misconfiguration
//   - Unavailable errors: Upstream service temporarily unreachable
//   - Timeout errors: Operation exceeded time limit
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "TOKEN_001") that can be
// used for error tracking, alerting, and client-side error handling. Error
// codes follow the pattern CATEGORY_XXX where CATEGORY is a short identifier
// and XXX is a numeric code.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeTokenService, "service token request rejected")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeUnavailableDependency, "iam service unreachable")
//
// Check error category:
//
//	if errors.IsToken(err) {
//	    // regenerate credentials and retry
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Error("operation failed",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
