package event

import (
	"testing"
	"time"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

func norm(t *testing.T, s string) dn.Dn {
	t.Helper()
	d, err := dn.MustParse(s).Normalize(schema.Default())
	if err != nil {
		t.Fatalf("Normalize(%q) failed: %v", s, err)
	}
	return d
}

func receive(t *testing.T, sub *Subscriber) ChangeEvent {
	t.Helper()
	select {
	case ev := <-sub.Channel():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return ChangeEvent{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	sub := b.Subscribe(WatchFilter{})
	if sub == nil {
		t.Fatal("Subscribe returned nil")
	}

	b.Publish(ChangeEvent{Operation: OpAdd, Dn: norm(t, "ou=x,ou=system")})
	ev := receive(t, sub)
	if ev.Operation != OpAdd {
		t.Errorf("operation = %v", ev.Operation)
	}
	if ev.Token == 0 {
		t.Error("events must carry a token")
	}
	if ev.Timestamp.IsZero() {
		t.Error("events must carry a timestamp")
	}
}

func TestTokensAreMonotonic(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	sub := b.Subscribe(WatchFilter{})

	b.Publish(ChangeEvent{Operation: OpAdd, Dn: norm(t, "ou=a,ou=system")})
	b.Publish(ChangeEvent{Operation: OpAdd, Dn: norm(t, "ou=b,ou=system")})

	first := receive(t, sub)
	second := receive(t, sub)
	if second.Token <= first.Token {
		t.Errorf("tokens must increase: %d then %d", first.Token, second.Token)
	}
}

func TestBaseFilter(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	sub := b.Subscribe(WatchFilter{Base: norm(t, "ou=users,ou=system")})

	b.Publish(ChangeEvent{Operation: OpAdd, Dn: norm(t, "ou=other,ou=system")})
	b.Publish(ChangeEvent{Operation: OpAdd, Dn: norm(t, "uid=alice,ou=users,ou=system")})

	ev := receive(t, sub)
	if !ev.Dn.Equal(norm(t, "uid=alice,ou=users,ou=system")) {
		t.Errorf("filter let the wrong event through: %s", ev.Dn.User())
	}
}

func TestOperationMask(t *testing.T) {
	f := WatchFilter{Operations: Mask(OpDelete, OpModify)}
	if f.Matches(&ChangeEvent{Operation: OpAdd}) {
		t.Error("mask should reject adds")
	}
	if !f.Matches(&ChangeEvent{Operation: OpDelete}) {
		t.Error("mask should accept deletes")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	sub := b.Subscribe(WatchFilter{})

	for i := 0; i < DefaultBufferSize+10; i++ {
		b.Publish(ChangeEvent{Operation: OpAdd, Dn: norm(t, "ou=x,ou=system")})
	}
	if sub.Dropped() == 0 {
		t.Error("overflow events must be counted as dropped")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	sub := b.Subscribe(WatchFilter{})
	b.Unsubscribe(sub.ID)

	if _, open := <-sub.Channel(); open {
		t.Error("channel should be closed after Unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Error("subscriber should be removed")
	}
}

func TestClosedBrokerRejectsSubscribe(t *testing.T) {
	b := NewBroker()
	b.Close()
	if sub := b.Subscribe(WatchFilter{}); sub != nil {
		t.Error("closed broker should return nil")
	}
}
