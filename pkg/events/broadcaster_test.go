package events

import (
	"testing"
	"time"
)

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := NewBroadcaster[int]()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	for i := 0; i < 5; i++ {
		b.Publish(i)
	}

	for name, ch := range map[string]<-chan int{"first": ch1, "second": ch2} {
		for i := 0; i < 5; i++ {
			select {
			case v := <-ch:
				if v != i {
					t.Errorf("%s subscriber: got %d, want %d", name, v, i)
				}
			case <-time.After(time.Second):
				t.Fatalf("%s subscriber: timeout waiting for value %d", name, i)
			}
		}
	}
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewBroadcasterWithBuffer[int](2)
	defer b.Close()

	slow, cancelSlow := b.Subscribe()
	defer cancelSlow()
	fast, cancelFast := b.Subscribe()
	defer cancelFast()

	// Fill the slow subscriber's buffer and keep publishing.
	for i := 0; i < 10; i++ {
		b.Publish(i)
		// Keep the fast subscriber drained so it sees everything.
		select {
		case v := <-fast:
			if v != i {
				t.Errorf("fast subscriber: got %d, want %d", v, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber: timeout at value %d", i)
		}
	}

	// The slow subscriber holds only the first two values.
	if got := len(slow); got != 2 {
		t.Errorf("slow subscriber buffer: got %d values, want 2", got)
	}
	if v := <-slow; v != 0 {
		t.Errorf("slow subscriber first value: got %d, want 0", v)
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster[int]()
	defer b.Close()

	ch, cancel := b.Subscribe()
	if b.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", b.Len())
	}

	cancel()
	cancel() // Safe to call twice.

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
	if b.Len() != 0 {
		t.Errorf("Len after cancel: got %d, want 0", b.Len())
	}
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster[string]()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Close()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}

	// Publish and Subscribe after Close are no-ops.
	b.Publish("dropped")
	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected closed channel from Subscribe after Close")
	}
}
