// Package facebadge runs the kiosk: camera frames in, recognition
// through the face database, debounced triggers out to the badge
// display cycle.
package facebadge

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/ahtesham/facebadge/capture"
	"github.com/ahtesham/facebadge/debounce"
	"github.com/ahtesham/facebadge/display"
	"github.com/ahtesham/facebadge/render"
)

// State is where the display cycle currently sits. Only the control
// loop mutates it.
type State int

const (
	StateIdle State = iota
	StateFadingIn
	StateShowingBadge
	StateFadingOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFadingIn:
		return "fading_in"
	case StateShowingBadge:
		return "showing_badge"
	case StateFadingOut:
		return "fading_out"
	default:
		return "unknown"
	}
}

// Matcher is the slice of the face database the loop needs.
type Matcher interface {
	Match(jpeg []byte) (string, error)
	Avatar(username string) image.Image
}

// Options are the loop's timing knobs, all fixed at startup.
type Options struct {
	FramesRequired int
	Cooldown       time.Duration
	FrameInterval  time.Duration
	FadeSteps      int
	FadeDelay      time.Duration
	Hold           time.Duration

	// IdleFrames, when non-empty, are cycled while waiting instead of
	// the static idle screen.
	IdleFrames []image.Image
}

// Kiosk owns all loop state. It is strictly single-threaded: one
// iteration does capture, recognition, debounce and (on a confirmed
// trigger) the whole fade-in/hold/fade-out sequence before the next
// frame is considered.
type Kiosk struct {
	source capture.Source
	faces  Matcher
	disp   display.Device
	rend   *render.Renderer
	deb    *debounce.Debouncer
	opts   Options
	log    *slog.Logger

	state      State
	staticIdle image.Image
	idleIdx    int
}

func New(source capture.Source, faces Matcher, disp display.Device, rend *render.Renderer, opts Options, log *slog.Logger) *Kiosk {
	return &Kiosk{
		source:     source,
		faces:      faces,
		disp:       disp,
		rend:       rend,
		deb:        debounce.New(opts.FramesRequired, opts.Cooldown),
		opts:       opts,
		log:        log,
		state:      StateIdle,
		staticIdle: rend.Idle(),
	}
}

// State reports the current display cycle state.
func (k *Kiosk) State() State { return k.state }

// Run drives the loop until the context is canceled. Per-frame
// problems are logged and skipped; display transport failures are
// fatal and returned.
func (k *Kiosk) Run(ctx context.Context) error {
	if err := k.disp.Draw(k.currentIdle()); err != nil {
		return errors.Wrap(err, "draw idle screen")
	}
	k.log.Info("kiosk running", "state", k.state.String())

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := k.step(time.Now()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(k.opts.FrameInterval):
		}
	}
}

// step processes one frame. Returned errors are resource-level only.
func (k *Kiosk) step(now time.Time) error {
	if err := k.advanceIdle(); err != nil {
		return err
	}

	frame, err := k.source.Next()
	if err != nil {
		k.log.Warn("skipping bad camera frame", "error", err)
		return nil
	}

	name, err := k.faces.Match(frame)
	if err != nil {
		// A failed recognition call counts as "nothing seen".
		k.log.Warn("recognition failed for frame", "error", err)
		name = ""
	}

	ev, ok := k.deb.Observe(name, now)
	if !ok {
		return nil
	}

	k.log.Info("badge trigger confirmed", "event", ev.ID.String(), "username", ev.Name)
	return k.showBadge(ev)
}

// showBadge runs the full fade-in / hold / fade-out cycle. Recognition
// is paused for its duration; the cooldown keeps a lingering face from
// re-triggering once the loop resumes.
func (k *Kiosk) showBadge(ev debounce.Event) error {
	badge := k.rend.Badge(ev.Name, k.faces.Avatar(ev.Name))
	from := k.currentIdle()

	k.state = StateFadingIn
	if err := render.Fade(k.disp, from, badge, k.opts.FadeSteps, k.opts.FadeDelay); err != nil {
		return err
	}

	k.state = StateShowingBadge
	time.Sleep(k.opts.Hold)

	k.state = StateFadingOut
	if err := render.Fade(k.disp, badge, k.currentIdle(), k.opts.FadeSteps, k.opts.FadeDelay); err != nil {
		return err
	}

	k.state = StateIdle
	k.log.Info("badge display complete", "event", ev.ID.String())
	return nil
}

// advanceIdle pushes the next animation frame while idle. With no
// animation the static screen is already up and nothing is drawn.
func (k *Kiosk) advanceIdle() error {
	if len(k.opts.IdleFrames) == 0 {
		return nil
	}
	k.idleIdx = (k.idleIdx + 1) % len(k.opts.IdleFrames)
	return errors.Wrap(k.disp.Draw(k.opts.IdleFrames[k.idleIdx]), "draw idle frame")
}

func (k *Kiosk) currentIdle() image.Image {
	if len(k.opts.IdleFrames) > 0 {
		return k.opts.IdleFrames[k.idleIdx]
	}
	return k.staticIdle
}
