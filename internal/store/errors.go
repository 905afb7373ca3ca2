package store

import "errors"

var (
	// ErrDisposed is returned by mutations on a bundle that has been disposed.
	ErrDisposed = errors.New("store: disposed")

	// ErrLoginFailed is the only error a failed login reports.
	ErrLoginFailed = errors.New("login failed")

	// ErrRegistrationFailed is the only error a failed registration reports.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrRegistryClosed is returned by Acquire after Close.
	ErrRegistryClosed = errors.New("store: registry closed")

	errIncompleteSession = errors.New("auth response missing token or user id")
)
