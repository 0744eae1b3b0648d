// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// errors.go defines the typed error model shared by all tool handlers.
package tools

import "errors"

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind classifies a tool error. The rendered message for each kind is
// stable: it is returned to the model inside the result envelope and must
// not change between releases.
type ErrorKind int

const (
	// KindPathNotAllowed - path escaped the sandbox or is malformed
	KindPathNotAllowed ErrorKind = iota

	// KindRootNotConfigured - tool needs a root directory that is not set
	KindRootNotConfigured

	// KindIO - underlying filesystem failure
	KindIO

	// KindInvalidArg - missing or malformed tool argument
	KindInvalidArg

	// KindUnknownTool - tool name not in the catalog
	KindUnknownTool

	// KindNetwork - HTTP transport or protocol failure
	KindNetwork

	// KindCommandFailed - process could not be launched or was blocked
	KindCommandFailed
)

// String returns the identifier for an error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindPathNotAllowed:
		return "path_not_allowed"
	case KindRootNotConfigured:
		return "root_not_configured"
	case KindIO:
		return "io"
	case KindInvalidArg:
		return "invalid_arg"
	case KindUnknownTool:
		return "unknown_tool"
	case KindNetwork:
		return "network"
	case KindCommandFailed:
		return "command_failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is the error type returned by tool handlers.
type Error struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

// Error renders the stable message for the kind.
func (e *Error) Error() string {
	switch e.Kind {
	case KindPathNotAllowed:
		return "Path not allowed: " + e.Detail
	case KindRootNotConfigured:
		return "Root not configured"
	case KindIO:
		return "IO: " + e.Detail
	case KindInvalidArg:
		return "Invalid argument: " + e.Detail
	case KindUnknownTool:
		return "Tool not found: " + e.Detail
	case KindNetwork:
		return "Network: " + e.Detail
	case KindCommandFailed:
		return "Command execution failed: " + e.Detail
	default:
		return e.Detail
	}
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a tool Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func errPathNotAllowed(detail string) error {
	return &Error{Kind: KindPathNotAllowed, Detail: detail}
}

func errRootNotConfigured() error {
	return &Error{Kind: KindRootNotConfigured}
}

func errIO(cause error) error {
	return &Error{Kind: KindIO, Detail: cause.Error(), Cause: cause}
}

func errInvalidArg(detail string) error {
	return &Error{Kind: KindInvalidArg, Detail: detail}
}

func errUnknownTool(name string) error {
	return &Error{Kind: KindUnknownTool, Detail: name}
}

func errNetwork(detail string) error {
	return &Error{Kind: KindNetwork, Detail: detail}
}

func errCommandFailed(detail string) error {
	return &Error{Kind: KindCommandFailed, Detail: detail}
}
