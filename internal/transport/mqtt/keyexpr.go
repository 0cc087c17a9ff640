package mqtt

import "strings"

// toMQTTFilter translates a Tide key expression ("*" matches one
// segment, "**" matches any number) to an MQTT topic filter ("+" and
// "#" respectively).
func toMQTTFilter(keyExpr string) string {
	segments := strings.Split(keyExpr, "/")
	for i, seg := range segments {
		switch seg {
		case "*":
			segments[i] = "+"
		case "**":
			segments[i] = "#"
		}
	}
	return strings.Join(segments, "/")
}

// Query/reply topics are prefixed rather than suffixed, so a trailing
// "**" in a declared key expression still lands as the final MQTT "#"
// segment once translated by toMQTTFilter. Replies put the correlation
// ID before the key for the same reason: the answering queryable's key
// may itself end in "**", which must stay in the trailing position for
// both the reply filter and the key recovered from the topic.
const (
	queryTopicPrefix = "_query/"
	replyTopicPrefix = "_reply/"
)

func queryTopic(key string) string {
	return queryTopicPrefix + key
}

func keyFromQueryTopic(topic string) string {
	return strings.TrimPrefix(topic, queryTopicPrefix)
}

// replyTopic carries the answering queryable's own key, so the Get side
// can reconstruct which key space replied (a "**" discovery query must
// come back keyed "robotA/**", not "**").
func replyTopic(correlationID, key string) string {
	return replyTopicPrefix + correlationID + "/" + key
}

func replyFilter(correlationID string) string {
	return replyTopicPrefix + correlationID + "/**"
}

func keyFromReplyTopic(topic, correlationID string) string {
	return strings.TrimPrefix(topic, replyTopicPrefix+correlationID+"/")
}
