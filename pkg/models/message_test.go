package models

import "testing"

func TestMessageStatusTransitionsOnlyMoveForward(t *testing.T) {
	cases := []struct {
		from MessageStatus
		to   MessageStatus
		want bool
	}{
		{MessageStatusSent, MessageStatusDelivered, true},
		{MessageStatusSent, MessageStatusRead, true},
		{MessageStatusDelivered, MessageStatusRead, true},
		{MessageStatusDelivered, MessageStatusSent, false},
		{MessageStatusRead, MessageStatusDelivered, false},
		{MessageStatusRead, MessageStatusSent, false},
		{MessageStatusSent, MessageStatusSent, false},
		{MessageStatusRead, MessageStatusRead, false},
		{MessageStatus("bogus"), MessageStatusRead, false},
		{MessageStatusSent, MessageStatus("bogus"), false},
	}

	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Fatalf("%s -> %s: expected %v, got %v", c.from, c.to, c.want, got)
		}
	}
}
