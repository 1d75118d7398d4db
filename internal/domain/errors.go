package domain

import "errors"

// ErrInvalidChunking indicates a bad chunk/overlap configuration.
// Fatal at startup, never recoverable at query time.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// ErrServiceUnavailable indicates the embedding or generation service
// failed or timed out. Recoverable per stage via fallback or degrade.
var ErrServiceUnavailable = errors.New("model service unavailable")

// ErrNotFound indicates a document name lookup miss.
var ErrNotFound = errors.New("document not found")
