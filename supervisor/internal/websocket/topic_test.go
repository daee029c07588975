package websocket

import "testing"

func TestTopicStringRoundTrip(t *testing.T) {
	cases := []struct {
		topic Topic
		want  string
	}{
		{AllFleet(), "fleet"},
		{PlcTopic(7), "fleet:7"},
	}
	for _, c := range cases {
		if got := c.topic.String(); got != c.want {
			t.Errorf("Topic.String() = %q, want %q", got, c.want)
		}
		if parsed := ParseTopic(c.want); parsed != c.topic {
			t.Errorf("ParseTopic(%q) = %+v, want %+v", c.want, parsed, c.topic)
		}
	}
}

func TestParseTopicFallsBackToAllFleet(t *testing.T) {
	for _, s := range []string{"", "garbage", "fleet:notanumber", "job:123"} {
		if got := ParseTopic(s); got != AllFleet() {
			t.Errorf("ParseTopic(%q) = %+v, want AllFleet()", s, got)
		}
	}
}
