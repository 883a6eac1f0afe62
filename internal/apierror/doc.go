// Package apierror defines error types for the Moderately SDK.
//
// This package provides structured error types that wrap different failure
// scenarios when talking to the Moderately AI platform. All error types
// support error unwrapping and can be checked using errors.Is, errors.As,
// and errors.AsType.
package apierror
