package services

import (
	"errors"
	"fmt"
	"strings"

	"vigil/internal/task"
)

// Sentinel markers shared across components. Call sites wrap these so
// upstream code can classify failures with errors.Is instead of string
// matching.
var (
	// ErrSessionInit marks viewer sessions that never became usable.
	ErrSessionInit = errors.New("viewer session initialization failed")
	// ErrStreamOpen marks stream pages that never reached a playable state.
	ErrStreamOpen = errors.New("stream open failed")
	// ErrStreamLost marks an established stream that broke mid-watch.
	ErrStreamLost = errors.New("stream playback lost")
	// ErrControlPlane marks failed control-plane requests or malformed replies.
	ErrControlPlane = errors.New("control plane request failed")
	// ErrConfiguration marks invalid or unusable configuration.
	ErrConfiguration = errors.New("configuration invalid")
	// ErrInternal marks bugs and unclassified failures.
	ErrInternal = errors.New("internal error")
)

// Wrap attaches component, operation, and message detail to a sentinel
// marker while preserving the cause chain for errors.Is/As.
func Wrap(marker error, component, operation, message string, cause error) error {
	detail := buildDetail(component, operation, message)
	if cause == nil {
		if detail == "" {
			return marker
		}
		return fmt.Errorf("%w: %s", marker, detail)
	}
	if detail == "" {
		return fmt.Errorf("%w: %w", marker, cause)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, cause)
}

func buildDetail(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ": ")
}

// ClassifyFailure maps an execution error onto the failure reason
// recorded for the attempt. Errors that are neither session-init nor
// stream-open failures can only occur once the stream was up, so they
// classify as stream errors.
func ClassifyFailure(err error) task.FailureReason {
	switch {
	case errors.Is(err, ErrSessionInit):
		return task.ReasonSessionInit
	case errors.Is(err, ErrStreamOpen):
		return task.ReasonOpenFailed
	default:
		return task.ReasonStreamError
	}
}
