package domain

import "testing"

func TestEventStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from EventStatus
		to   EventStatus
		want bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to delivered", StatusPending, StatusDelivered, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"failed to pending", StatusFailed, StatusPending, true},
		{"failed to delivered", StatusFailed, StatusDelivered, false},
		{"delivered to pending", StatusDelivered, StatusPending, true},
		{"delivered to failed", StatusDelivered, StatusFailed, false},
		{"same state", StatusDelivered, StatusDelivered, true},
		{"unknown target", StatusPending, EventStatus(9), false},
		{"unknown source", EventStatus(-1), StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestKindKnown(t *testing.T) {
	for _, k := range []Kind{KindEmail, KindPush, KindSMS, KindPushAWS} {
		if !k.Known() {
			t.Errorf("%q should be known", k)
		}
	}
	if Kind("fax").Known() {
		t.Errorf("fax should not be known")
	}
}
