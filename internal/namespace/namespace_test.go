package namespace

import "testing"

func TestMakeKey_RobotGroupTopic(t *testing.T) {
	got := MakeKey("robotA", "ping", "ping")
	want := "robotA/ping/ping"
	if got != want {
		t.Errorf("MakeKey = %q, want %q", got, want)
	}
}

func TestMakeKey_NoGroup(t *testing.T) {
	got := MakeKey("robotA", "", "status")
	want := "robotA/status"
	if got != want {
		t.Errorf("MakeKey = %q, want %q", got, want)
	}
}

func TestMakeKey_TopicAlreadyPrefixedWithGroup(t *testing.T) {
	got := MakeKey("robotA", "ping", "ping/extra")
	want := "robotA/ping/extra"
	if got != want {
		t.Errorf("MakeKey = %q, want %q", got, want)
	}
}

func TestMakeKey_LeadingSlashBypassesNamespacing(t *testing.T) {
	got := MakeKey("robotA", "ping", "/raw/topic")
	want := "raw/topic"
	if got != want {
		t.Errorf("MakeKey = %q, want %q", got, want)
	}
}

func TestMakeKey_DefaultRobotID(t *testing.T) {
	got := MakeKey("", "", "status")
	want := DefaultRobotID + "/status"
	if got != want {
		t.Errorf("MakeKey = %q, want %q", got, want)
	}
}

func TestParseKey_RoundTrip(t *testing.T) {
	cases := []struct {
		robot, group, topic string
	}{
		{"robotA", "ping", "ping"},
		{"robotA", "", "status"},
		{"robotA", "a/b", "topic"},
	}

	for _, c := range cases {
		key := MakeKey(c.robot, c.group, c.topic)
		robot, group, topic := ParseKey(key)
		if robot != c.robot || topic != c.topic {
			t.Errorf("ParseKey(%q) = (%q, %q, %q), want robot=%q topic=%q", key, robot, group, topic, c.robot, c.topic)
		}
		if c.group != "" && group != c.group {
			t.Errorf("ParseKey(%q) group = %q, want %q", key, group, c.group)
		}
	}
}

func TestParseKey_TwoSegments(t *testing.T) {
	robot, group, topic := ParseKey("robotA/status")
	if robot != "robotA" || group != "" || topic != "status" {
		t.Errorf("ParseKey = (%q,%q,%q)", robot, group, topic)
	}
}
