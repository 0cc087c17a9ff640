// Package player implements the bag replay subsystem: it reads a
// bag directory in the layout internal/recorder writes and republishes
// every entry through the process's shared transport.Session,
// preserving inter-message timing in real-time mode.
package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
)

// Mode selects the replay timing strategy.
type Mode int

const (
	// RealTime delays each message until its bag-time offset from the
	// first message has elapsed on the wall clock since the first was
	// sent. This is the default.
	RealTime Mode = iota
	// AsFastAsPossible emits every message with no delay.
	AsFastAsPossible
)

// interruptPollInterval bounds how late a Stop call is observed
// during a real-time wait: the wait is chopped into polls of this size
// instead of one long timer.
const interruptPollInterval = 50 * time.Millisecond

// Player replays one bag's worth of recorded traffic. Construct with
// Open, drive with Start, and either wait on Done or call Stop to abort
// early.
type Player struct {
	session transport.Session
	logger  *slog.Logger
	mode    Mode
	entries []Entry

	mu      sync.Mutex
	lastErr error

	declared map[string]bool

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Player at construction time.
type Option func(*Player)

// WithMode overrides the default RealTime replay mode.
func WithMode(m Mode) Option {
	return func(p *Player) { p.mode = m }
}

// Open reads dir's bag and returns a Player ready for Start. session is
// the process's single shared transport session — Open
// does not open its own, so a launcher-spawned player shares the same
// session every node publishes through.
func Open(dir string, session transport.Session, logger *slog.Logger, opts ...Option) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := readBag(dir)
	if err != nil {
		return nil, err
	}

	p := &Player{
		session:  session,
		logger:   logger,
		entries:  entries,
		declared: make(map[string]bool),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start spawns the replay goroutine. Call once per Player; Open a fresh
// Player for a second playback run.
func (p *Player) Start(ctx context.Context) {
	go p.run(ctx)
}

// Done returns a channel closed once replay has finished, been
// stopped, or failed.
func (p *Player) Done() <-chan struct{} { return p.done }

// Stop aborts replay. The in-flight wait, if any, is observed within
// interruptPollInterval; Stop itself does not block, so callers that
// need to know replay has actually exited should also wait on Done.
func (p *Player) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// LastError returns the most recent replay error, or nil if replay
// completed (or is still running) without one.
func (p *Player) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Player) run(ctx context.Context) {
	defer close(p.done)
	defer p.releasePublishers()

	var t0Bag, t0Wall time.Time
	haveFirst := false

	for _, e := range p.entries {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			p.setErr(ctx.Err())
			return
		default:
		}

		p.declarePublisher(e.Topic)

		if p.mode == RealTime {
			bagTime := time.Unix(0, e.TSNano)
			if !haveFirst {
				t0Bag, t0Wall = bagTime, time.Now()
				haveFirst = true
			} else if !p.sleepUntil(t0Wall.Add(bagTime.Sub(t0Bag))) {
				return
			}
		}

		if err := p.session.Put(ctx, e.Topic, e.Payload); err != nil {
			p.logger.Warn("player: publish failed", "topic", e.Topic, "error", err)
			p.setErr(err)
		}
	}
}

// declarePublisher records the first appearance of a topic during
// this run: the per-topic publisher handle, declared lazily. The
// in-process Session needs no actual handle object to publish, so this
// is bookkeeping/logging rather than a real resource acquisition.
func (p *Player) declarePublisher(topic string) {
	if p.declared[topic] {
		return
	}
	p.declared[topic] = true
	p.logger.Debug("player: declared publisher", "topic", topic)
}

// releasePublishers clears the declared-topic bookkeeping on
// completion or error, pairing with declarePublisher.
func (p *Player) releasePublishers() {
	p.declared = make(map[string]bool)
}

// sleepUntil waits until target, checking the stop channel at least
// every interruptPollInterval so Stop is observed promptly even when
// target is far away. Returns false if interrupted. A target already
// in the past returns true immediately — a late message is emitted at
// once, and no attempt is made to compress later delays to catch up.
func (p *Player) sleepUntil(target time.Time) bool {
	for {
		remaining := time.Until(target)
		if remaining <= 0 {
			return true
		}
		wait := remaining
		if wait > interruptPollInterval {
			wait = interruptPollInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-p.stopCh:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (p *Player) setErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}
