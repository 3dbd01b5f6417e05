package graph

import (
	"errors"
	"fmt"
)

// ErrDiscoveryOnly is returned (wrapped) when a language that is only tracked
// in the file graph is routed to a grammar. It signals a classifier and
// extractor table that have drifted apart.
var ErrDiscoveryOnly = errors.New("language is discovery-only")

// ParseError is a per-file parse failure.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.File, e.Message)
}

// PanicError is a recovered panic from one file's parse or extraction.
type PanicError struct {
	File  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic while processing %s: %v", e.File, e.Value)
}
