package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
)

type queryable struct {
	keyExpr string
	handler transport.QueryHandler
}

// queryables and the mutex guarding them are declared alongside Session
// in publisher.go; this file adds the methods implementing Get and
// DeclareQueryable on top of the query/reply topic convention in
// keyexpr.go.

// Get publishes a query message to "_query/<keyExpr>" carrying a random
// correlation ID, subscribes to the correlation-scoped reply filter,
// and collects every reply received before timeout elapses. Each
// reply's Key is the answering queryable's own expression, recovered
// from the reply topic.
func (s *Session) Get(ctx context.Context, keyExpr string, timeout time.Duration) ([]transport.Sample, error) {
	correlationID := uuid.New().String()

	replies := make(chan transport.Sample, 16)
	unsub, err := s.Subscribe(replyFilter(correlationID), func(topic string, payload []byte) {
		select {
		case replies <- transport.Sample{Key: keyFromReplyTopic(topic, correlationID), Payload: payload}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer unsub()

	if _, err := s.publishRaw(ctx, queryTopic(keyExpr), []byte(correlationID), false); err != nil {
		return nil, &transport.TransportError{Op: "get", Err: fmt.Errorf("publish query: %w", err)}
	}

	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var results []transport.Sample
	for {
		select {
		case r := <-replies:
			results = append(results, r)
		case <-queryCtx.Done():
			return results, nil
		}
	}
}

// DeclareQueryable subscribes to the query topic space and answers each
// query matching keyExpr by calling handler with the queried key,
// replying on the query's correlation-scoped reply topic. The MQTT
// subscription covers all of "_query/#" rather than a keyExpr-derived
// filter: a discovery query is published to a literal topic like
// "_query/**", which no scoped MQTT filter would receive — the
// per-queryable matching happens in dispatchQuery instead.
func (s *Session) DeclareQueryable(keyExpr string, handler transport.QueryHandler) (transport.Unsubscribe, error) {
	q := &queryable{keyExpr: keyExpr, handler: handler}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.queryables == nil {
		s.queryables = make(map[uint64]*queryable)
	}
	s.queryables[id] = q
	s.mu.Unlock()

	if err := s.subscribeFilter(context.Background(), queryTopicPrefix+"#"); err != nil {
		s.mu.Lock()
		delete(s.queryables, id)
		s.mu.Unlock()
		return nil, err
	}

	return func() {
		s.mu.Lock()
		delete(s.queryables, id)
		s.mu.Unlock()
	}, nil
}

// dispatchQuery checks an inbound query message against every declared
// queryable and, on a match, calls its handler and publishes the reply
// under the queryable's own key expression, so the querier can tell
// which key space answered. Called from the same OnPublishReceived hook
// as dispatch. Two expressions intersect if either matches the other
// taken literally; this is what lets a "**" discovery query reach a
// queryable declared on "robotA/**".
func (s *Session) dispatchQuery(topic string, payload []byte) {
	if !strings.HasPrefix(topic, queryTopicPrefix) {
		return
	}
	queryKey := keyFromQueryTopic(topic)

	s.mu.Lock()
	var matched []*queryable
	for _, q := range s.queryables {
		if transport.MatchKeyExpr(q.keyExpr, queryKey) || transport.MatchKeyExpr(queryKey, q.keyExpr) {
			matched = append(matched, q)
		}
	}
	s.mu.Unlock()

	if len(matched) == 0 {
		return
	}

	correlationID := string(payload)

	for _, q := range matched {
		reply, err := q.handler(queryKey)
		if err != nil {
			s.logger.Debug("mqtt: queryable handler error", "key", queryKey, "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := s.publishRaw(ctx, replyTopic(correlationID, q.keyExpr), reply, false); err != nil {
			s.logger.Warn("mqtt: reply publish failed", "key", q.keyExpr, "error", err)
		}
		cancel()
	}
}

// publishRaw is the shared low-level publish used by Put (retained)
// and the query/reply protocol (not retained).
func (s *Session) publishRaw(ctx context.Context, topic string, payload []byte, retain bool) (*paho.PublishResponse, error) {
	return s.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     0,
		Retain:  retain,
	})
}
