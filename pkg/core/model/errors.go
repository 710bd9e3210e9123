package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGeocodeNotFound means the geocoder returned no usable result.
// Callers treat it as a soft failure and carry on without coordinates.
var ErrGeocodeNotFound = errors.New("geocode: no result for address")

// ValidationError reports malformed or missing input. Nothing is persisted.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("validation failed for %s: %s", strings.Join(e.Fields, ", "), e.Reason)
	}
	return fmt.Sprintf("validation failed for %s", strings.Join(e.Fields, ", "))
}

// GenerationError wraps a text-generation failure
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("text generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NotFoundError means the referenced alert no longer exists
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("alert %s not found", e.ID)
}

// StoreError wraps a persistent store read or write failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// UpstreamError wraps a failed lookup against a public data service
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s lookup failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
