package notify

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/standby-systems/standby/pkg/types"
)

// ConsoleSink writes events to the terminal with color.
type ConsoleSink struct{}

// NewConsoleSink creates a new console event sink.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

// Name returns the sink identifier.
func (s *ConsoleSink) Name() string { return "console" }

// Send writes an event to the terminal with color-coded level.
func (s *ConsoleSink) Send(_ context.Context, ev types.Event) error {
	var prefix string
	switch ev.Level {
	case types.EventLevelError:
		prefix = color.RedString("[ERROR]")
	case types.EventLevelWarning:
		prefix = color.YellowString("[WARN]")
	default:
		prefix = color.CyanString("[INFO]")
	}

	if ev.ExecutionID != "" {
		fmt.Printf("%s [%s] %s: %s\n", prefix, ev.ExecutionID, ev.Kind, ev.Message)
	} else {
		fmt.Printf("%s %s: %s\n", prefix, ev.Kind, ev.Message)
	}
	return nil
}
