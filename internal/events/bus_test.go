package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusDeliversToTypeAndAllSubscribers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	var typed, all []Event

	bus.Subscribe(EventSignalGenerated, func(e Event) {
		mu.Lock()
		typed = append(typed, e)
		mu.Unlock()
		wg.Done()
	})
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		all = append(all, e)
		mu.Unlock()
		wg.Done()
	})

	bus.PublishSignal("BTCUSDT", "scalp", "BULLISH", 72, 50000)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscribers were not notified")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(typed) != 1 || len(all) != 1 {
		t.Fatalf("typed=%d all=%d, want 1/1", len(typed), len(all))
	}
	if typed[0].Data["symbol"] != "BTCUSDT" {
		t.Errorf("payload wrong: %+v", typed[0].Data)
	}
	if typed[0].Timestamp.IsZero() {
		t.Error("publish must stamp the event")
	}
}

func TestBusTypeFiltering(t *testing.T) {
	bus := NewBus()

	notified := make(chan Event, 1)
	bus.Subscribe(EventTradeClosed, func(e Event) { notified <- e })

	bus.PublishTradeOpened("t1", "ETHUSDT", "BULLISH", 3000, 1)

	select {
	case e := <-notified:
		t.Fatalf("subscriber for TRADE_CLOSED got %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}

	bus.PublishTradeClosed("t1", "ETHUSDT", "TARGET_HIT", 3100, 100, 3.3)
	select {
	case e := <-notified:
		if e.Data["reason"] != "TARGET_HIT" {
			t.Errorf("payload wrong: %+v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("matching subscriber was not notified")
	}
}
