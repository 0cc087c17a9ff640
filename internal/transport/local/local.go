// Package local implements the in-process Session binding: a goroutine
// per subscriber with a buffered, non-blocking channel, modeled on the
// reference corpus's in-memory pub/sub broker pattern. It is the
// default binding — deterministic and dependency-free, so the node
// runtime, launcher, and end-to-end tests can exercise it without a
// broker.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
)

func init() {
	transport.RegisterBinding("local", func(cfg config.SessionConfig, logger *slog.Logger) (transport.Session, error) {
		return New(cfg, logger), nil
	})
}

// defaultBufferSize is the per-subscriber channel capacity. A full
// buffer causes Put to drop the message for that subscriber rather than
// block the publisher.
const defaultBufferSize = 64

type subscription struct {
	id      uint64
	keyExpr string
	onSample transport.OnSample
	ch      chan transport.Sample
	done    chan struct{}
}

type queryable struct {
	id      uint64
	keyExpr string
	handler transport.QueryHandler
}

// Session is the in-process Session implementation.
type Session struct {
	mode   config.SessionMode
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	quers  map[uint64]*queryable
	latest map[string]transport.Sample // retained values, for Get against non-queryable keys

	nextID atomic.Uint64
	wg     sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs an in-process Session. cfg.Broker is ignored; cfg.Mode
// is retained only to reject Get/DeclareQueryable under "router" mode,
// which has no meaning for a single-process broker.
func New(cfg config.SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		mode:   cfg.Mode,
		logger: logger,
		subs:   make(map[uint64]*subscription),
		quers:  make(map[uint64]*queryable),
		latest: make(map[string]transport.Sample),
		closed: make(chan struct{}),
	}
}

// Put publishes payload under key: it is retained (so a later Get finds
// it even with no queryable declared) and fanned out to every matching
// subscriber's buffered channel, dropping on a full buffer rather than
// blocking.
func (s *Session) Put(ctx context.Context, key string, payload []byte) error {
	select {
	case <-s.closed:
		return &transport.TransportError{Op: "put", Err: fmt.Errorf("session closed")}
	default:
	}

	sample := transport.Sample{Key: key, Payload: payload}

	s.mu.Lock()
	s.latest[key] = sample
	matching := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if transport.MatchKeyExpr(sub.keyExpr, key) {
			matching = append(matching, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range matching {
		select {
		case sub.ch <- sample:
		default:
			s.logger.Warn("local transport: dropped sample, subscriber buffer full",
				"key", key, "key_expr", sub.keyExpr)
		}
	}
	return nil
}

// Subscribe registers onSample to run on a dedicated goroutine for
// every published key matching keyExpr.
func (s *Session) Subscribe(keyExpr string, onSample transport.OnSample) (transport.Unsubscribe, error) {
	sub := &subscription{
		id:       s.nextID.Add(1),
		keyExpr:  keyExpr,
		onSample: onSample,
		ch:       make(chan transport.Sample, defaultBufferSize),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runSubscription(sub)

	return func() { s.removeSubscription(sub.id) }, nil
}

func (s *Session) runSubscription(sub *subscription) {
	defer s.wg.Done()
	for {
		select {
		case sample, ok := <-sub.ch:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error("local transport: subscriber callback panicked",
							"key", sample.Key, "panic", r)
					}
				}()
				sub.onSample(sample.Key, sample.Payload)
			}()
		case <-sub.done:
			return
		}
	}
}

func (s *Session) removeSubscription(id uint64) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
	}
	s.mu.Unlock()
	if ok {
		close(sub.done)
	}
}

// Get queries declared queryables matching keyExpr, falling back to any
// retained Put values for keys no queryable answers. Replies are
// collected until timeout elapses or every matching queryable has
// answered.
func (s *Session) Get(ctx context.Context, keyExpr string, timeout time.Duration) ([]transport.Sample, error) {
	if s.mode == config.ModeRouter {
		return nil, &transport.TransportError{Op: "get", Err: fmt.Errorf("router mode has no local query path")}
	}

	s.mu.RLock()
	results := make([]transport.Sample, 0)
	for key, sample := range s.latest {
		if transport.MatchKeyExpr(keyExpr, key) {
			results = append(results, sample)
		}
	}
	matchingQueryables := make([]*queryable, 0)
	for _, q := range s.quers {
		// Two expressions intersect if either matches the other taken
		// literally; this is what lets a "**" discovery query reach a
		// queryable declared on "robotA/**".
		if transport.MatchKeyExpr(q.keyExpr, keyExpr) || transport.MatchKeyExpr(keyExpr, q.keyExpr) {
			matchingQueryables = append(matchingQueryables, q)
		}
	}
	s.mu.RUnlock()

	if len(matchingQueryables) == 0 {
		return results, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, q := range matchingQueryables {
		payload, err := q.handler(keyExpr)
		if err != nil {
			s.logger.Debug("local transport: queryable handler error", "key", keyExpr, "error", err)
			continue
		}
		// The reply carries the answering queryable's own expression,
		// not the query's: a "**" discovery query must come back keyed
		// "robotA/**" so the caller can parse the robot out of it.
		results = append(results, transport.Sample{Key: q.keyExpr, Payload: payload})
		select {
		case <-queryCtx.Done():
			return results, nil
		default:
		}
	}

	return results, nil
}

// DeclareQueryable registers handler to answer Get queries matching
// keyExpr.
func (s *Session) DeclareQueryable(keyExpr string, handler transport.QueryHandler) (transport.Unsubscribe, error) {
	if s.mode == config.ModeRouter {
		return nil, &transport.TransportError{Op: "declare_queryable", Err: fmt.Errorf("router mode has no local query path")}
	}

	q := &queryable{id: s.nextID.Add(1), keyExpr: keyExpr, handler: handler}
	s.mu.Lock()
	s.quers[q.id] = q
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.quers, q.id)
		s.mu.Unlock()
	}, nil
}

// Close shuts down every subscriber goroutine and releases resources.
// Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		subs := make([]*subscription, 0, len(s.subs))
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
		s.subs = make(map[uint64]*subscription)
		s.mu.Unlock()

		for _, sub := range subs {
			close(sub.done)
		}
		s.wg.Wait()
	})
	return nil
}
