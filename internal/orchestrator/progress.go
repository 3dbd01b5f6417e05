package orchestrator

import (
	"fmt"

	"github.com/dusk-indust/nexus/internal/graph"
)

// Status is the run state carried by every progress event.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// resolvingPercent is where relationship resolution is reported; it has no
// finer-grained progress of its own.
const resolvingPercent = 90.0

// resolvingLabel is the current-file text of the resolving event.
const resolvingLabel = "Resolving relationships..."

// ProgressEvent is one status update of a run.
type ProgressEvent struct {
	Status          Status       `json:"status"`
	CurrentFile     string       `json:"currentFile,omitempty"`
	FilesProcessed  int          `json:"filesProcessed"`
	TotalFiles      int          `json:"totalFiles"`
	PercentComplete float64      `json:"percentComplete"`
	ErrorMessage    string       `json:"errorMessage,omitempty"`
	Statistics      *graph.Stats `json:"statistics,omitempty"` // complete events only
}

// Resolving reports whether e marks the start of relationship resolution.
func (e ProgressEvent) Resolving() bool {
	return e.Status == StatusAnalyzing && e.CurrentFile == resolvingLabel
}

// ProgressSink receives events. The engine serialises calls, so a sink need
// not be safe for concurrent use.
type ProgressSink func(ProgressEvent)

// IdleEvent is the state before any run.
func IdleEvent() ProgressEvent {
	return ProgressEvent{Status: StatusIdle}
}

// DiscoveredEvent reports one file found during discovery. The total is not
// known yet, so there is no percentage.
func DiscoveredEvent(path string) ProgressEvent {
	return ProgressEvent{Status: StatusAnalyzing, CurrentFile: path}
}

// StartedEvent opens the parse phase.
func StartedEvent(total int) ProgressEvent {
	return ProgressEvent{Status: StatusAnalyzing, TotalFiles: total}
}

// ParsingEvent reports the file a worker is about to parse.
func ParsingEvent(path string, processed, total int) ProgressEvent {
	var pct float64
	if total > 0 {
		pct = float64(processed) / float64(total) * 100
	}
	return ProgressEvent{
		Status:          StatusAnalyzing,
		CurrentFile:     path,
		FilesProcessed:  processed,
		TotalFiles:      total,
		PercentComplete: pct,
	}
}

// ResolvingEvent reports the start of relationship resolution.
func ResolvingEvent(processed, total int) ProgressEvent {
	return ProgressEvent{
		Status:          StatusAnalyzing,
		CurrentFile:     resolvingLabel,
		FilesProcessed:  processed,
		TotalFiles:      total,
		PercentComplete: resolvingPercent,
	}
}

// CompletedEvent is the terminal success event, sent after storage commits.
func CompletedEvent(stats graph.Stats) ProgressEvent {
	return ProgressEvent{
		Status:          StatusComplete,
		FilesProcessed:  stats.TotalFiles,
		TotalFiles:      stats.TotalFiles,
		PercentComplete: 100,
		Statistics:      &stats,
	}
}

// ErrorEvent is the terminal failure event.
func ErrorEvent(msg string) ProgressEvent {
	return ProgressEvent{Status: StatusError, ErrorMessage: msg}
}

// CancelledEvent is the terminal cancellation event.
func CancelledEvent() ProgressEvent {
	return ProgressEvent{Status: StatusCancelled}
}

// ProgressReporter fans events into a buffered channel for a consumer on
// another goroutine.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion. When the buffer is
// full, non-terminal events are dropped; terminal events wait for room.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	if event.Status.Terminal() {
		pr.ch <- event
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Sink adapts the reporter to a ProgressSink.
func (pr *ProgressReporter) Sink() ProgressSink {
	return pr.Emit
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case StatusIdle:
		return "  ○ idle"
	case StatusAnalyzing:
		if event.TotalFiles == 0 {
			if event.CurrentFile == "" {
				return "  ● discovering files..."
			}
			return fmt.Sprintf("  ● found %s", event.CurrentFile)
		}
		if event.CurrentFile == "" {
			return fmt.Sprintf("  ● analyzing %d files...", event.TotalFiles)
		}
		return fmt.Sprintf("  ● [%d/%d %3.0f%%] %s", event.FilesProcessed, event.TotalFiles,
			event.PercentComplete, event.CurrentFile)
	case StatusComplete:
		if s := event.Statistics; s != nil {
			return fmt.Sprintf("  ✓ complete: %d files, %d symbols, %d relationships",
				s.TotalFiles, s.TotalSymbols, s.TotalRelationships)
		}
		return "  ✓ complete"
	case StatusError:
		return fmt.Sprintf("  ✗ failed: %s", event.ErrorMessage)
	case StatusCancelled:
		return "  ✗ cancelled"
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Status)
	}
}
