// Package procrun runs external toolchain processes with incremental output
// scanning, a bounded diagnostic tail and a hard duration budget. Long-running
// children (transcription, rendering) are never buffered unbounded; a runaway
// process is killed when its budget expires.
package procrun

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/storycut/storycut/internal/errs"
)

// tailLimit bounds how much child output is kept for error diagnosis.
const tailLimit = 4096

// Spec describes one child process invocation.
type Spec struct {
	// Name labels the operation in errors ("ffmpeg render", "whisper").
	Name string
	Bin  string
	Args []string
	// Timeout forcibly terminates the child when exceeded. Zero means no
	// extra budget beyond the caller's context.
	Timeout time.Duration
	// OnLine is invoked for every complete output line (stdout and stderr,
	// \n or \r terminated) as it arrives.
	OnLine func(line string)
}

// Run executes the spec and returns the bounded output tail. A non-zero exit
// yields *errs.ProcessExitError; an expired budget yields *errs.TimeoutError.
func Run(ctx context.Context, s Spec) (string, error) {
	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.Bin, s.Args...)
	sink := &lineSink{onLine: s.OnLine}
	cmd.Stdout = sink
	cmd.Stderr = sink

	err := cmd.Run()
	sink.flush()
	if err == nil {
		return sink.tailString(), nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return sink.tailString(), &errs.TimeoutError{Op: s.Name, Budget: s.Timeout}
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return sink.tailString(), &errs.ProcessExitError{
			Cmd:      s.Name,
			ExitCode: ee.ExitCode(),
			Tail:     sink.tailString(),
		}
	}
	return sink.tailString(), fmt.Errorf("%s: %w", s.Name, err)
}

// lineSink splits the child's writes into lines. ffmpeg reports progress on
// \r-terminated lines, so both \r and \n end a line.
type lineSink struct {
	onLine func(string)
	buf    []byte
	tail   []byte
}

func (ls *lineSink) Write(p []byte) (int, error) {
	ls.tail = append(ls.tail, p...)
	if over := len(ls.tail) - tailLimit; over > 0 {
		ls.tail = ls.tail[over:]
	}

	ls.buf = append(ls.buf, p...)
	for {
		i := indexLineEnd(ls.buf)
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(ls.buf[:i]))
		ls.buf = ls.buf[i+1:]
		if line != "" && ls.onLine != nil {
			ls.onLine(line)
		}
	}
	return len(p), nil
}

func (ls *lineSink) flush() {
	line := strings.TrimSpace(string(ls.buf))
	ls.buf = nil
	if line != "" && ls.onLine != nil {
		ls.onLine(line)
	}
}

func (ls *lineSink) tailString() string {
	return strings.TrimSpace(string(ls.tail))
}

func indexLineEnd(b []byte) int {
	for i, c := range b {
		if c == '\n' || c == '\r' {
			return i
		}
	}
	return -1
}
