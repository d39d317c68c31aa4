package pipeline

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// TerminalProgress returns stderr when it is a terminal, nil otherwise.
func TerminalProgress() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return os.Stderr
	}
	return nil
}

// progress reports geocoding progress as a bar on w, or as log lines when
// w is nil.
type progress struct {
	bar    *progressbar.ProgressBar
	logger *slog.Logger
	total  int
	done   int
}

func newProgress(w io.Writer, total int, logger *slog.Logger) *progress {
	p := &progress{logger: logger, total: total}
	if w != nil && total > 0 {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Geocoding places"),
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *progress) step(place string) {
	p.done++
	if p.bar == nil {
		p.logger.Debug("place resolved", "place", place, "done", p.done, "total", p.total)
		return
	}
	if err := p.bar.Add(1); err != nil {
		p.logger.Debug("progress bar update failed", "error", err)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
