// Package namespace builds and parses the forward-slash-delimited keys
// every node publishes and subscribes under. It holds no state: every
// function here is pure.
package namespace

import "strings"

// DefaultRobotID is used when a node is constructed with an empty
// robot_id (robot_id is always non-empty).
const DefaultRobotID = "robot"

// MakeKey builds a full transport key from a robot ID, an optional group,
// and a topic name.
//
// A literal leading slash on topic means "use verbatim, bypass
// namespacing": the slash is stripped and the remainder returned as-is.
// Otherwise, if group is non-empty and topic does not already begin with
// "group/", the key is "robot/group/topic"; otherwise it is "robot/topic".
func MakeKey(robotID, group, topic string) string {
	if strings.HasPrefix(topic, "/") {
		return strings.TrimPrefix(topic, "/")
	}

	if robotID == "" {
		robotID = DefaultRobotID
	}

	if group != "" && !strings.HasPrefix(topic, group+"/") {
		return robotID + "/" + group + "/" + topic
	}

	return robotID + "/" + topic
}

// ParseKey splits a full key into its robot, group, and topic segments.
// The first segment is always the robot; the last is always the topic;
// anything in between (there may be more than one segment, or none) is
// the group. Round-trip is only guaranteed for keys produced by MakeKey
// on well-formed inputs.
func ParseKey(key string) (robot, group, topic string) {
	parts := strings.Split(key, "/")
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return "", "", parts[0]
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], "/"), parts[len(parts)-1]
	}
}
