package cli

import (
	"fmt"
	"io"

	"github.com/storycut/storycut/internal/pipeline"
)

// consoleSink prints pipeline events as terse progress lines. Repeated
// progress for the same stage overwrites nothing; every update is its own
// line so the output stays pipeable.
type consoleSink struct {
	out      io.Writer
	lastStep string
	lastPct  int
}

func (s *consoleSink) Send(e pipeline.Event) {
	switch e.Type {
	case pipeline.EventProgress:
		// Drop repeats so a chatty encoder does not flood the terminal.
		if e.StepID == s.lastStep && e.Progress == s.lastPct {
			return
		}
		s.lastStep, s.lastPct = e.StepID, e.Progress
		fmt.Fprintf(s.out, "[%s] %3d%%", e.StepID, e.Progress)
		if e.Message != "" {
			fmt.Fprintf(s.out, " %s", e.Message)
		}
		fmt.Fprintln(s.out)
	case pipeline.EventStepComplete:
		if e.Message != "" {
			fmt.Fprintf(s.out, "[%s] done: %s\n", e.StepID, e.Message)
		} else {
			fmt.Fprintf(s.out, "[%s] done\n", e.StepID)
		}
	case pipeline.EventError:
		fmt.Fprintf(s.out, "[%s] error: %s\n", e.StepID, e.Message)
	case pipeline.EventDone:
		fmt.Fprintln(s.out, "all stages complete")
	}
}

func (s *consoleSink) Close() {}
