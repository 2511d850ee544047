// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render produces highlighted markup and diagram graphics for
// scanner-emitted blocks, asynchronously and independently of the scan
// loop.
package render

// =============================================================================
// RENDER STATE
// =============================================================================

// State is the per-block render state machine.
//
//	Empty → Validating → Rendering → Rendered
//	                  ↘ Failed (only once the owning message is finalized)
//
// A validation failure while the message is still streaming keeps the
// block in Validating: mid-stream the text is likely just incomplete, so
// it is re-attempted on the next scan that includes the block.
type State int

const (
	StateEmpty State = iota
	StateValidating
	StateRendering
	StateRendered
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateValidating:
		return "Validating"
	case StateRendering:
		return "Rendering"
	case StateRendered:
		return "Rendered"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Result is the single result slot for one block's render task.
type Result struct {
	State  State
	Output string // rendered markup, valid in StateRendered
	Reason string // failure description, valid in StateFailed
}
