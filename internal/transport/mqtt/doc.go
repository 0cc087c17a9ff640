// Package mqtt implements the Session binding over a real MQTT broker,
// using Eclipse Paho v2's autopaho for connection management with
// automatic reconnection. Put publishes a retained message; Subscribe
// adds a topic filter and dispatches inbound messages that match the
// caller's key expression; Get/DeclareQueryable are built on a
// request/reply topic pair, since MQTT has no native query primitive.
package mqtt
