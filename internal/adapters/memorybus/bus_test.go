package memorybus

import "testing"

func TestBus_PrefixFilter(t *testing.T) {
	b := New()
	finder, cancelFinder := b.Subscribe("finder.")
	defer cancelFinder()
	all, cancelAll := b.Subscribe()
	defer cancelAll()

	b.Publish("content.cached", []byte(`{}`))
	b.Publish("finder.scan.started", []byte(`{}`))

	ev := <-finder
	if ev.Topic != "finder.scan.started" {
		t.Fatalf("expected finder topic, got %q", ev.Topic)
	}
	select {
	case ev := <-finder:
		t.Fatalf("unexpected event %q", ev.Topic)
	default:
	}

	if got := (<-all).Topic; got != "content.cached" {
		t.Fatalf("expected content.cached first, got %q", got)
	}
	if got := (<-all).Topic; got != "finder.scan.started" {
		t.Fatalf("expected finder.scan.started second, got %q", got)
	}
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	cancel()
	b.Publish("x", nil)

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected closed channel after Close")
	}
}
