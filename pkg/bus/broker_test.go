package bus_test

import (
	"testing"

	"github.com/telmoq/stickysync/pkg/bus"
)

func TestBroker_ExactMatch(t *testing.T) {
	b := bus.New(nil)

	var got []string
	_, err := b.Subscribe("note.saved", func(topic string, payload any) {
		got = append(got, payload.(string))
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Emit("note.saved", "a")
	b.Emit("note.deleted", "b")

	if len(got) != 1 || got[0] != "a" {
		t.Errorf("want [a], got %v", got)
	}
}

func TestBroker_Wildcards(t *testing.T) {
	b := bus.New(nil)

	cases := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"note.*", "note.saved", true},
		{"note.*", "note.external-modified", true},
		{"note.*", "sync.status", false},
		{"note.*", "note.sync.status", false},
		{"**", "anything.at.all", true},
		{"sync.status", "sync.status", true},
	}

	for _, tc := range cases {
		t.Run(tc.pattern+" vs "+tc.topic, func(t *testing.T) {
			delivered := false
			unsub, err := b.Subscribe(tc.pattern, func(string, any) { delivered = true })
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer unsub()

			b.Emit(tc.topic, nil)
			if delivered != tc.want {
				t.Errorf("pattern %q topic %q: want delivered=%v, got %v", tc.pattern, tc.topic, tc.want, delivered)
			}
		})
	}
}

func TestBroker_SubscriptionOrder(t *testing.T) {
	b := bus.New(nil)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if _, err := b.Subscribe("topic", func(string, any) { order = append(order, i) }); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	b.Emit("topic", nil)
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("want delivery in subscription order, got %v", order)
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := bus.New(nil)

	count := 0
	unsub, err := b.Subscribe("topic", func(string, any) { count++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Emit("topic", nil)
	unsub()
	unsub() // second call is a no-op
	b.Emit("topic", nil)

	if count != 1 {
		t.Errorf("want exactly one delivery, got %d", count)
	}
}

func TestBroker_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	b := bus.New(nil)

	if _, err := b.Subscribe("topic", func(string, any) { panic("boom") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	delivered := false
	if _, err := b.Subscribe("topic", func(string, any) { delivered = true }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Emit("topic", nil)
	if !delivered {
		t.Error("second handler should still run after a panic in the first")
	}
}

func TestBroker_InvalidPattern(t *testing.T) {
	b := bus.New(nil)
	if _, err := b.Subscribe("note.[", func(string, any) {}); err == nil {
		t.Error("expected invalid pattern to be rejected")
	}
}
