package banner

import (
	"errors"
	"sync"

	"holidayd/internal/clock"
	appLog "holidayd/internal/log"
)

// State is the lifecycle position of the banner.
type State string

const (
	StateAbsent  State = "absent"
	StateShowing State = "showing"
	StateFading  State = "fading"
)

// Surface is where a banner physically lives: a page, a terminal, memory.
// The presenter guarantees Mount is never called while a previous banner
// is still mounted.
type Surface interface {
	Mount(n Notice) error
	Fade()
	Unmount()
}

// Presenter drives a single banner through
// absent -> showing -> fading -> absent.
//
// Every Present bumps a generation counter; timers armed for an older
// generation are ignored when they fire.
type Presenter struct {
	surface   Surface
	clock     clock.Clock
	durations Durations

	mu      sync.Mutex
	state   State
	current *Notice
	gen     uint64
	timer   clock.Timer
}

func NewPresenter(s Surface, c clock.Clock, d Durations) *Presenter {
	return &Presenter{
		surface:   s,
		clock:     c,
		durations: d.Normalize(),
		state:     StateAbsent,
	}
}

// Present replaces whatever banner is up with n.
func (p *Presenter) Present(n Notice) error {
	if p.surface == nil {
		return errors.New("banner: no surface")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateAbsent {
		p.removeLocked()
	}

	if err := p.surface.Mount(n); err != nil {
		appLog.Error("banner mount failed", err, "kind", n.Kind)
		return err
	}

	p.gen++
	gen := p.gen
	p.state = StateShowing
	p.current = &n
	p.timer = p.clock.AfterFunc(p.durations.For(n.Kind), func() { p.fade(gen) })

	appLog.Debug("banner shown", "kind", n.Kind, "count", len(n.Holidays), "ttl", p.durations.For(n.Kind))
	return nil
}

// Close is the user's close button. It starts the fade immediately.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateShowing {
		return
	}
	p.fadeLocked()
}

// State returns the lifecycle state and the notice on screen, if any.
func (p *Presenter) State() (State, *Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return p.state, nil
	}
	n := *p.current
	return p.state, &n
}

func (p *Presenter) fade(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || p.state != StateShowing {
		return
	}
	p.fadeLocked()
}

func (p *Presenter) fadeLocked() {
	if p.timer != nil {
		p.timer.Stop()
	}
	gen := p.gen
	p.state = StateFading
	p.surface.Fade()
	p.timer = p.clock.AfterFunc(p.durations.Fade, func() { p.remove(gen) })
}

func (p *Presenter) remove(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || p.state != StateFading {
		return
	}
	p.removeLocked()
}

func (p *Presenter) removeLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.surface.Unmount()
	p.state = StateAbsent
	p.current = nil
}
