package page

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/clock"
	"github.com/breatheroute/aqdash/internal/format"
)

// DefaultClockInterval is the live clock refresh period.
const DefaultClockInterval = time.Second

// Widgets counts the enhanced trigger elements.
type Widgets struct {
	Tooltips int
	Popovers int
}

// InitWidgets enhances every tooltip and popover trigger in doc.
func InitWidgets(doc Document, tk Toolkit) Widgets {
	var w Widgets
	for _, el := range doc.QuerySelectorAll(SelectorTooltipTrigger) {
		tk.Tooltip(el)
		w.Tooltips++
	}
	for _, el := range doc.QuerySelectorAll(SelectorPopoverTrigger) {
		tk.Popover(el)
		w.Popovers++
	}
	return w
}

// UpdateClock writes now into every current-time element and returns how
// many were updated.
func UpdateClock(doc Document, now time.Time, f format.Formatter) int {
	els := doc.QuerySelectorAll(SelectorCurrentTime)
	if len(els) == 0 {
		return 0
	}
	text := f.Instant(now)
	for _, el := range els {
		el.SetText(text)
	}
	return len(els)
}

// Options configures Bootstrap.
type Options struct {
	Toolkit   Toolkit
	Scheduler clock.Scheduler
	Formatter format.Formatter
	Logger    zerolog.Logger

	// ClockInterval defaults to DefaultClockInterval.
	ClockInterval time.Duration
}

// Bootstrap activates widgets, sets the clock and keeps it ticking. The
// returned func stops the clock; pages normally run it for their lifetime.
func Bootstrap(doc Document, opts Options) (stop func()) {
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = clock.Real{}
	}
	interval := opts.ClockInterval
	if interval == 0 {
		interval = DefaultClockInterval
	}

	if opts.Toolkit != nil {
		w := InitWidgets(doc, opts.Toolkit)
		opts.Logger.Debug().
			Int("tooltips", w.Tooltips).
			Int("popovers", w.Popovers).
			Msg("page widgets initialized")
	}

	tick := func() { UpdateClock(doc, scheduler.Now(), opts.Formatter) }
	tick()
	return clock.Every(scheduler, interval, tick)
}
