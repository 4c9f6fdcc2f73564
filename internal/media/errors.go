// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"errors"
	"fmt"
)

// Error kinds reported by media primitives. Use errors.Is to classify.
var (
	ErrTranscode = errors.New("transcode failed")
	ErrAlign     = errors.New("alignment failed")
	ErrTrim      = errors.New("trim failed")
	ErrComposite = errors.New("composite failed")
	ErrProbe     = errors.New("probe failed")
)

// maxStderrTail bounds the diagnostics kept on an OpError.
const maxStderrTail = 4096

// OpError describes a failed external media operation.
type OpError struct {
	Kind   error  // one of the Err* kinds above
	Op     string // e.g. "trim", "ffprobe"
	Path   string // primary input or output involved
	Stderr string // tail of the tool's diagnostics
	Err    error  // underlying cause (exit status, decode error)
}

// NewOpError builds an OpError, truncating stderr to a bounded tail.
func NewOpError(kind error, op, path, stderr string, err error) *OpError {
	if len(stderr) > maxStderrTail {
		stderr = "..." + stderr[len(stderr)-maxStderrTail:]
	}
	return &OpError{Kind: kind, Op: op, Path: path, Stderr: stderr, Err: err}
}

func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
