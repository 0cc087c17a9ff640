package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
)

func init() {
	transport.RegisterBinding("mqtt", func(cfg config.SessionConfig, logger *slog.Logger) (transport.Session, error) {
		return Open(cfg, logger)
	})
}

// connectTimeout bounds how long Open waits for the initial broker
// connection before returning — autopaho keeps retrying in the
// background regardless, so a slow-to-appear broker is logged rather
// than fatal.
const connectTimeout = 30 * time.Second

// Session is the MQTT Session binding.
type Session struct {
	cfg    config.SessionConfig
	logger *slog.Logger
	cm     *autopaho.ConnectionManager

	mu         sync.Mutex
	subs       map[uint64]*subscription
	queryables map[uint64]*queryable

	rateLimiter *messageRateLimiter
	limiterStop context.CancelFunc

	nextID    uint64
	closeOnce sync.Once
}

type subscription struct {
	keyExpr  string
	onSample transport.OnSample
}

// Open connects to the broker named by cfg.Broker and returns a ready
// Session. The connection itself is managed in the background by
// autopaho; Open blocks only for the initial handshake attempt.
func Open(cfg config.SessionConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	brokerURL, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, &transport.TransportError{Op: "open", Err: fmt.Errorf("parse broker url %q: %w", cfg.Broker, err)}
	}

	s := &Session{cfg: cfg, logger: logger, subs: make(map[uint64]*subscription)}

	clientID, err := loadOrCreateClientID(cfg)
	if err != nil {
		logger.Warn("mqtt: could not persist client id, using ephemeral one", "error", err)
		id, _ := uuid.NewV7()
		clientID = id.String()
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  30,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			logger.Info("mqtt: connected to broker", "broker", cfg.Broker)
			s.resubscribe(context.Background())
		},
		OnConnectError: func(err error) {
			logger.Warn("mqtt: connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "tide-" + clientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	ctx := context.Background()
	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return nil, &transport.TransportError{Op: "open", Err: fmt.Errorf("connect: %w", err)}
	}
	s.cm = cm

	limiterCtx, limiterCancel := context.WithCancel(context.Background())
	s.limiterStop = limiterCancel
	s.rateLimiter = newMessageRateLimiter(500, time.Second, logger)
	go s.rateLimiter.start(limiterCtx)

	cm.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		if !s.rateLimiter.allow() {
			return true, nil
		}
		s.dispatch(pr.Packet.Topic, pr.Packet.Payload)
		s.dispatchQuery(pr.Packet.Topic, pr.Packet.Payload)
		return true, nil
	})

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		logger.Warn("mqtt: initial connection timed out, will retry in background", "error", err)
	}

	return s, nil
}

// loadOrCreateClientID derives a stable MQTT client ID so a restarted
// process reconnects under the same identity instead of orphaning the
// broker's prior session state. Falls back to the configured extra
// field "data_dir", defaulting to the current directory.
func loadOrCreateClientID(cfg config.SessionConfig) (string, error) {
	dataDir := "."
	if v, ok := cfg.Extra["data_dir"]; ok {
		if s, ok := v.(string); ok && s != "" {
			dataDir = s
		}
	}
	return LoadOrCreateInstanceID(dataDir)
}

// Put publishes payload under key as a retained message, so a later
// Get against a key with no queryable declared still finds the last
// value.
func (s *Session) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.publishRaw(ctx, key, payload, true)
	if err != nil {
		return &transport.TransportError{Op: "put", Err: err}
	}
	return nil
}

// Subscribe adds an MQTT topic filter for keyExpr (translated via
// toMQTTFilter) and registers onSample to run for every inbound message
// whose topic matches keyExpr under Tide's wildcard semantics.
func (s *Session) Subscribe(keyExpr string, onSample transport.OnSample) (transport.Unsubscribe, error) {
	sub := &subscription{keyExpr: keyExpr, onSample: onSample}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = sub
	s.mu.Unlock()

	if err := s.subscribeFilter(context.Background(), toMQTTFilter(keyExpr)); err != nil {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		return nil, err
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

func (s *Session) subscribeFilter(ctx context.Context, filter string) error {
	if _, err := s.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: 0}},
	}); err != nil {
		return &transport.TransportError{Op: "subscribe", Err: err}
	}
	return nil
}

// resubscribe re-sends SUBSCRIBE packets for every registered
// subscription. autopaho does not resubscribe automatically after a
// reconnect, so this is called from OnConnectionUp.
func (s *Session) resubscribe(ctx context.Context) {
	s.mu.Lock()
	filters := make(map[string]struct{}, len(s.subs))
	for _, sub := range s.subs {
		filters[toMQTTFilter(sub.keyExpr)] = struct{}{}
	}
	s.mu.Unlock()

	for filter := range filters {
		if err := s.subscribeFilter(ctx, filter); err != nil {
			s.logger.Warn("mqtt: resubscribe failed", "filter", filter, "error", err)
		}
	}
}

func (s *Session) dispatch(topic string, payload []byte) {
	s.mu.Lock()
	matching := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if transport.MatchKeyExpr(sub.keyExpr, topic) {
			matching = append(matching, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range matching {
		func(sub *subscription) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("mqtt: subscriber callback panicked", "topic", topic, "panic", r)
				}
			}()
			sub.onSample(topic, payload)
		}(sub)
	}
}

// Close disconnects from the broker. Idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.limiterStop != nil {
			s.limiterStop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.cm.Disconnect(ctx)
	})
	if err != nil {
		return &transport.TransportError{Op: "close", Err: err}
	}
	return nil
}

// AwaitConnection blocks until the broker connection is established or
// ctx expires. Used by internal/connwatch as the session readiness
// probe during launcher startup.
func (s *Session) AwaitConnection(ctx context.Context) error {
	return s.cm.AwaitConnection(ctx)
}
