package model

import (
	"errors"
	"fmt"
)

var (
	// ErrRecursionDepthExceeded matches call trees deeper than the configured limit.
	ErrRecursionDepthExceeded = errors.New("recursion depth exceeded")
	// ErrMalformedEvent matches events whose parameters do not fit their shape.
	ErrMalformedEvent = errors.New("malformed event")
)

// RecursionDepthExceededError reports the first frame found below the depth limit.
type RecursionDepthExceededError struct {
	Limit int
	Depth int
}

func (e *RecursionDepthExceededError) Error() string {
	return fmt.Sprintf("call depth %d exceeds limit %d", e.Depth, e.Limit)
}

func (e *RecursionDepthExceededError) Is(target error) bool {
	return target == ErrRecursionDepthExceeded
}

// MalformedEventError reports an event that cannot be mapped to its shape.
type MalformedEventError struct {
	Index     int
	EventName string
	Reason    string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("event %d (%s): %s", e.Index, e.EventName, e.Reason)
}

func (e *MalformedEventError) Is(target error) bool {
	return target == ErrMalformedEvent
}

// Stage names the part of a decode that failed.
type Stage string

const (
	StageCalls    Stage = "calls"
	StageEvents   Stage = "events"
	StageSpecials Stage = "specials"
)

// DecodeError wraps the condition that stopped a transaction decode.
type DecodeError struct {
	Stage  Stage
	TxHash string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.TxHash == "" {
		return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("decode %s %s: %v", e.TxHash, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Warning codes.
const (
	WarnBatchLengthMismatch = "batch_length_mismatch"
	WarnTruncatedCallTree   = "truncated_call_tree"
	WarnSkippedEvent        = "skipped_event"
)

// Warning is a non-fatal data-quality note attached to a decode result.
type Warning struct {
	Code       string `json:"code"`
	EventIndex int    `json:"event_index"`
	Message    string `json:"message"`
}

// FailureRecord records a failed decode for the errors output.
type FailureRecord struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	Stage       string `json:"stage,omitempty"`
	Error       string `json:"error"`
}
