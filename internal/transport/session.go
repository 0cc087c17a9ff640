// Package transport declares the pub/sub fabric abstraction that
// every node talks to, and hosts its two concrete bindings:
// internal/transport/local (an in-process broker, the default) and
// internal/transport/mqtt (a real broker binding over MQTT).
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
)

// Sample is one (key, payload) pair returned by Session.Get.
type Sample struct {
	Key     string
	Payload []byte
}

// OnSample is invoked from a transport goroutine for every message
// matching a Subscribe key expression.
type OnSample func(key string, payload []byte)

// QueryHandler answers a discovery query for one key, returning the
// bytes to reply with.
type QueryHandler func(key string) ([]byte, error)

// Unsubscribe cancels a Subscribe or DeclareQueryable registration. It
// is idempotent.
type Unsubscribe func()

// Session abstracts the pub/sub fabric: fire-and-forget
// publish, key-expression subscription, synchronous discovery query,
// and query replies, keyed by forward-slash-delimited strings built by
// internal/namespace.
type Session interface {
	// Put publishes payload under key. It may buffer briefly; it never
	// blocks on a subscriber being slow to drain.
	Put(ctx context.Context, key string, payload []byte) error

	// Subscribe registers onSample for every key matching keyExpr (which
	// may use the two-level wildcard scheme: "*" for one segment, "**"
	// for any number). onSample runs on a transport goroutine.
	Subscribe(keyExpr string, onSample OnSample) (Unsubscribe, error)

	// Get synchronously queries discoverable state matching keyExpr,
	// waiting up to timeout for replies from any declared queryables.
	Get(ctx context.Context, keyExpr string, timeout time.Duration) ([]Sample, error)

	// DeclareQueryable registers handler to answer Get queries matching
	// keyExpr.
	DeclareQueryable(keyExpr string, handler QueryHandler) (Unsubscribe, error)

	// Close releases all resources held by the session. Idempotent.
	Close() error
}

// TransportError reports a failure in the transport binding itself
// (connection lost, publish rejected, malformed key expression) as
// distinct from an application-level error from node code.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// OpenFunc constructs a Session from a session config. Bindings
// register one of these under a name via RegisterBinding.
type OpenFunc func(cfg config.SessionConfig, logger *slog.Logger) (Session, error)

var bindings = map[string]OpenFunc{}

// RegisterBinding makes a concrete Session implementation available to
// Open under name. Bindings call this from an init() function — the
// same registration-by-import pattern database/sql uses for drivers —
// so that internal/transport itself never imports internal/transport/local
// or internal/transport/mqtt directly.
func RegisterBinding(name string, open OpenFunc) {
	bindings[name] = open
}

// Open constructs the Session binding selected by cfg. An empty or
// "local" broker selects the in-process binding used for tests and
// single-process deployments; any other value is treated as an MQTT
// broker URL. cfg.Mode (peer/client/router) is carried through as
// metadata on the returned session — only the local binding inspects it
// (a "router" local session refuses Get/DeclareQueryable, since the
// in-process broker has no notion of a routing hop to query through).
//
// The selected binding's package must be blank-imported by the caller
// (cmd/tide does this for both) so its init() has registered it here.
func Open(cfg config.SessionConfig, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := "local"
	if cfg.Broker != "" && cfg.Broker != "local" {
		name = "mqtt"
	}

	open, ok := bindings[name]
	if !ok {
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("binding %q not registered (missing blank import of internal/transport/%s)", name, name)}
	}
	return open(cfg, logger)
}
