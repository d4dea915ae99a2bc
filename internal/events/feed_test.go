package events

import (
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	initial := SubscriberCount()

	sub1 := Subscribe()
	sub2 := Subscribe("phase.")
	if SubscriberCount() != initial+2 {
		t.Errorf("expected %d subscribers, got %d", initial+2, SubscriberCount())
	}

	Unsubscribe(sub1)
	Unsubscribe(sub2)
	if SubscriberCount() != initial {
		t.Errorf("expected %d subscribers after unsubscribe, got %d", initial, SubscriberCount())
	}
	if _, ok := <-sub1.C; ok {
		t.Error("expected channel closed after unsubscribe")
	}
}

func TestBroadcastToSubscribers(t *testing.T) {
	sub1 := Subscribe()
	sub2 := Subscribe()
	defer Unsubscribe(sub1)
	defer Unsubscribe(sub2)

	Emit("info", "phase.started", "", map[string]interface{}{"phase": "intro"})

	for i, sub := range []*Subscription{sub1, sub2} {
		select {
		case e := <-sub.C:
			if e.Name != "phase.started" || e.Fields["phase"] != "intro" {
				t.Errorf("sub%d: unexpected event %+v", i+1, e)
			}
			if e.Seq == 0 {
				t.Errorf("sub%d: expected a sequence number", i+1)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("sub%d: timeout waiting for event", i+1)
		}
	}
}

func TestSubscriptionPrefixFilter(t *testing.T) {
	sub := Subscribe(" level.", "", "phase.")
	defer Unsubscribe(sub)

	if !sub.Wants("level.reset") || sub.Wants("trigger.fired") {
		t.Error("unexpected filter result")
	}
	if !(&Subscription{}).Wants("anything") {
		t.Error("expected an unfiltered subscription to want everything")
	}

	Emit("info", "trigger.fired", "", nil)
	Emit("info", "phase.completed", "", nil)
	select {
	case e := <-sub.C:
		if e.Name != "phase.completed" {
			t.Errorf("expected phase.completed, got %s", e.Name)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for filtered event")
	}
}

func TestSlowSubscriberDropsAreCounted(t *testing.T) {
	sub := Subscribe("trigger.")
	defer Unsubscribe(sub)
	before := DroppedCount()

	for i := 0; i < subscriptionBuffer+5; i++ {
		Emit("info", "trigger.fired", "", nil)
	}
	Emit("info", "phase.started", "", nil)

	if sub.Dropped() != 5 {
		t.Errorf("expected 5 dropped, got %d", sub.Dropped())
	}
	if DroppedCount()-before < 5 {
		t.Errorf("expected global drop count to grow by at least 5, got %d", DroppedCount()-before)
	}
}

func TestCloseAllSubscribers(t *testing.T) {
	CloseAllSubscribers()

	subs := []*Subscription{Subscribe(), Subscribe(), Subscribe()}
	if SubscriberCount() != 3 {
		t.Errorf("expected 3 subscribers, got %d", SubscriberCount())
	}

	CloseAllSubscribers()
	for _, s := range subs {
		if _, ok := <-s.C; ok {
			t.Error("expected all channels to be closed")
		}
	}
	if SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", SubscriberCount())
	}

	// Must not panic on double close.
	Unsubscribe(subs[0])
}
