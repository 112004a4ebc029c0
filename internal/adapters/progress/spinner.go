package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// SpinnerSink shows the stage of the unit being processed on a spinner and
// prints a line whenever a unit finishes a stage.
type SpinnerSink struct {
	spinner    *spinner.Spinner
	out        io.Writer
	unit       string
	stage      usecase.ExecutionStage
	stageStart time.Time
}

// NewSpinnerSink creates a new spinner based progress sink
func NewSpinnerSink(out io.Writer) *SpinnerSink {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false
	return &SpinnerSink{spinner: s, out: out}
}

// NewSink returns the spinner on interactive terminals and the log sink otherwise
func NewSink(cfg *config.RuntimeConfig, log *slog.Logger) usecase.ProgressSink {
	if cfg.NonInteractive || cfg.JSON {
		return NewLogSink(log)
	}
	return NewSpinnerSink(os.Stderr)
}

// OnProgress handles progress events
func (r *SpinnerSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Unit != r.unit || event.Stage != r.stage {
		r.completeStage()
		r.unit = event.Unit
		r.stage = event.Stage
		r.stageStart = time.Now()
	}

	if event.Stage == usecase.StageCompleted {
		r.spinner.Stop()
		r.unit, r.stage = "", ""
		return
	}

	if event.Spinner {
		r.spinner.Suffix = " " + r.suffix(event)
		if !r.spinner.Active() {
			r.spinner.Start()
		}
	} else if r.spinner.Active() {
		r.spinner.Stop()
	}
}

func (r *SpinnerSink) suffix(event usecase.ProgressEvent) string {
	msg := event.Message
	if event.Total > 0 {
		msg = fmt.Sprintf("[%d/%d] %s", event.Current, event.Total, msg)
	}
	if event.Stage != "" {
		msg = fmt.Sprintf("%s %s", color.New(color.FgYellow).Sprint(event.Stage), msg)
	}
	return msg
}

// completeStage prints the finished stage of the current unit
func (r *SpinnerSink) completeStage() {
	if r.unit == "" || r.stage == "" {
		return
	}
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	fmt.Fprintf(r.out, "%s %s %s (%s)\n",
		color.GreenString("✓"),
		r.unit,
		color.New(color.Faint).Sprint(r.stage),
		time.Since(r.stageStart).Round(time.Millisecond))
	if wasActive {
		r.spinner.Start()
	}
}

// Info prints an info message
func (r *SpinnerSink) Info(message string) {
	r.print(color.New(color.FgCyan), message)
}

// Error stops the spinner and prints an error message
func (r *SpinnerSink) Error(message string) {
	r.spinner.Stop()
	r.unit, r.stage = "", ""
	color.New(color.FgRed).Fprintln(r.out, message)
}

func (r *SpinnerSink) print(c *color.Color, message string) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	c.Fprintln(r.out, message)
	if wasActive {
		r.spinner.Start()
	}
}

var _ usecase.ProgressSink = (*SpinnerSink)(nil)
