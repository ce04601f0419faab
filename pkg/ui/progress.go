// Package ui renders album run progress on the terminal.
package ui

import (
	"fmt"
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"imgurdl/pkg/logger"
)

// IsTerminal reports whether stdout is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ProgressObserver renders a progress bar over the album run. The bar is
// created lazily on the first image event because the image count is only
// known once extraction has run.
type ProgressObserver struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	logger   logger.Logger
}

// NewProgressObserver creates a progress observer writing to stdout
func NewProgressObserver(log logger.Logger) *ProgressObserver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ProgressObserver{
		progress: mpb.New(mpb.WithWidth(64)),
		logger:   log,
	}
}

// OnImage advances the bar after each save attempt
func (p *ProgressObserver) OnImage(index, total int, id string, err error) {
	if p.bar == nil {
		p.bar = p.progress.New(int64(total), barStyle(), barOptions()...)
	}
	if err != nil {
		p.logger.WithField("id", id).Warn("image failed")
	}
	p.bar.Increment()
}

// OnComplete waits for the bar to flush
func (p *ProgressObserver) OnComplete(total int) {
	if p.bar != nil {
		p.bar.SetTotal(int64(total), true)
	}
	p.progress.Wait()
}

func barStyle() mpb.BarStyleComposer {
	return mpb.BarStyle().Lbound("[").Filler("█").Padding("░").Rbound("]")
}

func barOptions() []mpb.BarOption {
	return []mpb.BarOption{
		mpb.PrependDecorators(
			decor.Name("images ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
	}
}

// LogObserver reports progress through the logger, for quiet runs and
// non-terminal output
type LogObserver struct {
	logger logger.Logger
}

// NewLogObserver creates a logging observer
func NewLogObserver(log logger.Logger) *LogObserver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &LogObserver{logger: log}
}

func (l *LogObserver) OnImage(index, total int, id string, err error) {
	fields := map[string]interface{}{
		"image": fmt.Sprintf("%d/%d", index, total),
		"id":    id,
	}
	if err != nil {
		fields["error"] = err.Error()
		l.logger.WarnWithFields("image failed", fields)
		return
	}
	l.logger.InfoWithFields("image saved", fields)
}

func (l *LogObserver) OnComplete(total int) {
	l.logger.WithField("total", total).Info("all images processed")
}
