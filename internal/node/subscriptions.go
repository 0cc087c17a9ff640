package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/wire"
)

// topicSub is the per-full-key bookkeeping: one
// transport-level subscription, a list of user callbacks sharing it,
// and a latest-value cache slot. At most one transport.Session.Subscribe
// call is ever made per full key per node, however many user callbacks
// register against it.
type topicSub struct {
	fullKey     string
	unsubscribe transport.Unsubscribe
	cache       slot

	mu        sync.Mutex
	callbacks []Callback
}

// subscriptionTable owns every topicSub for one Node. It is mutated
// only from the node's own control path (Subscribe, RegisterCallback,
// Stop); transport callback goroutines only read the callback list and
// write the cache slot.
type subscriptionTable struct {
	node *Node

	mu   sync.Mutex
	byKey map[string]*topicSub
}

func newSubscriptionTable(n *Node) *subscriptionTable {
	return &subscriptionTable{node: n, byKey: make(map[string]*topicSub)}
}

// Put serializes value (unless it is already bytes), publishes it under
// topic's namespaced key, and notifies the active recorder.
func (n *Node) Put(topic string, value any) error {
	payload, err := wire.ToPayload(value)
	if err != nil {
		return fmt.Errorf("node: put %s: %w", topic, err)
	}
	key := n.fullKey(topic)

	if err := n.session.Put(context.Background(), key, payload); err != nil {
		return fmt.Errorf("node: put %s: %w", topic, err)
	}

	if len(payload) > 0 {
		n.rec.Record(key, payload, time.Now().UnixNano())
	}
	return nil
}

// Subscribe registers a transport-level subscription for topic's full
// key if one does not already exist for this node, then adds cb (if
// non-nil) to that key's callback list.
func (n *Node) Subscribe(topic string, cb Callback) error {
	return n.registerCallback(topic, cb, false)
}

// RegisterCallback adds cb to topic's callback list, auto-subscribing
// if this is the first registration for that key. Unlike
// Subscribe, cb must not be nil here — there would be nothing to
// register.
func (n *Node) RegisterCallback(topic string, cb Callback) error {
	return n.registerCallback(topic, cb, true)
}

func (n *Node) registerCallback(topic string, cb Callback, mustHaveCallback bool) error {
	key := n.fullKey(topic)

	n.subs.mu.Lock()
	sub, exists := n.subs.byKey[key]
	if !exists {
		sub = &topicSub{fullKey: key}
		n.subs.byKey[key] = sub
	}
	n.subs.mu.Unlock()

	if !exists {
		unsub, err := n.session.Subscribe(key, func(sampleKey string, payload []byte) {
			n.onSample(sub, sampleKey, payload)
		})
		if err != nil {
			n.subs.mu.Lock()
			delete(n.subs.byKey, key)
			n.subs.mu.Unlock()
			return fmt.Errorf("node: subscribe %s: %w", topic, err)
		}
		sub.unsubscribe = unsub
	}

	if cb != nil {
		sub.mu.Lock()
		sub.callbacks = append(sub.callbacks, cb)
		sub.mu.Unlock()
	} else if mustHaveCallback {
		return fmt.Errorf("node: subscribe %s: callback must not be nil", topic)
	}
	return nil
}

// onSample runs on a transport goroutine: it updates the latest-value
// slot, then invokes every registered callback, isolating each with a
// recover so one panicking callback cannot take down the others or the
// transport goroutine.
func (n *Node) onSample(sub *topicSub, key string, payload []byte) {
	value, err := n.decodeGeneric(payload)
	if err != nil {
		n.logger.Warn("node: dropped malformed sample", "key", key, "error", err)
		return
	}
	sub.cache.set(value)

	sub.mu.Lock()
	callbacks := append([]Callback(nil), sub.callbacks...)
	sub.mu.Unlock()

	for _, cb := range callbacks {
		n.invokeCallback(key, cb, value)
	}
}

func (n *Node) invokeCallback(key string, cb Callback, value any) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("node: callback panicked", "key", key, "panic", r)
		}
	}()
	cb(value)
}

// Take returns the cached latest value for topic's full key and
// atomically clears it. Returns false if
// no sample has arrived since the last Take (or ever).
func (n *Node) Take(topic string) (any, bool) {
	key := n.fullKey(topic)

	n.subs.mu.Lock()
	sub, ok := n.subs.byKey[key]
	n.subs.mu.Unlock()
	if !ok {
		return nil, false
	}
	return sub.cache.take()
}

// Get synchronously queries the transport for topic's full key, waiting
// up to timeout for the first reply. Returns false on timeout or if no
// queryable answers.
func (n *Node) Get(ctx context.Context, topic string, timeout time.Duration) (any, bool) {
	key := n.fullKey(topic)
	samples, err := n.session.Get(ctx, key, timeout)
	if err != nil {
		n.logger.Debug("node: get failed", "key", key, "error", err)
		return nil, false
	}
	if len(samples) == 0 {
		return nil, false
	}
	value, err := n.decodeGeneric(samples[0].Payload)
	if err != nil {
		n.logger.Warn("node: get decoded malformed sample", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

// decodeGeneric decodes payload into a plain Go value (map/slice/
// string/number) rather than a raw []byte: the cache slot holds the
// most recently received sample in decoded form, with dictionaries and
// primitives passing through unchanged, so the node layer always
// decodes through the codec, unlike wire.FromPayload's nil-schema raw passthrough (which
// exists for the recorder/player's byte-for-byte replay path instead).
func (n *Node) decodeGeneric(payload []byte) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var target any
	return n.codec.Decode(payload, &target)
}

// unsubscribeAll releases every transport-level subscription this node
// holds. Called once from Stop.
func (n *Node) unsubscribeAll() {
	n.subs.mu.Lock()
	subs := make([]*topicSub, 0, len(n.subs.byKey))
	for _, s := range n.subs.byKey {
		subs = append(subs, s)
	}
	n.subs.byKey = make(map[string]*topicSub)
	n.subs.mu.Unlock()

	for _, s := range subs {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	}
}
