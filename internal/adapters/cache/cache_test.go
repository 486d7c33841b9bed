package cache

import (
	"testing"
	"time"

	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
)

func TestPlayerCache_GetMissReturnsNil(t *testing.T) {
	c := NewPlayerCache()
	if got := c.Get("nope"); got != nil {
		t.Errorf("expected nil on miss, got %+v", got)
	}
}

func TestPlayerCache_SetNotifiesSubscribers(t *testing.T) {
	c := NewPlayerCache()

	var seen []*player.Player
	unsub := c.Subscribe("p1", func(p *player.Player) {
		seen = append(seen, p)
	})

	p := player.New("p1", "Villain", "user-1")
	c.Set(p)

	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}
	if seen[0].Name != "Villain" {
		t.Errorf("unexpected notified player: %+v", seen[0])
	}

	unsub()
	c.Set(p)
	if len(seen) != 1 {
		t.Error("notified after unsubscribe")
	}
}

func TestPlayerCache_ClonesOnReadAndWrite(t *testing.T) {
	c := NewPlayerCache()

	p := player.New("p1", "Villain", "user-1")
	p.Ranges = ranges.RangeSet{"early_open-raise": {"AA": ranges.StateManualSelected}}
	c.Set(p)

	// Mutating the original after Set must not leak into the cache.
	p.Name = "Mutated"
	got := c.Get("p1")
	if got.Name != "Villain" {
		t.Errorf("cache shares state with the caller: %s", got.Name)
	}

	// Mutating a read copy must not leak back in.
	got.Ranges["early_open-raise"]["AA"] = ranges.StateManualUnselect
	again := c.Get("p1")
	if again.Ranges.Get("early_open-raise").Get("AA") != ranges.StateManualSelected {
		t.Error("cache shares range state with readers")
	}
}

func TestPlayerCache_InvalidateAndReset(t *testing.T) {
	c := NewPlayerCache()
	c.Set(player.New("p1", "A", ""))
	c.Set(player.New("p2", "B", ""))

	c.Invalidate("p1")
	if c.Get("p1") != nil {
		t.Error("invalidated entry still cached")
	}
	if c.Get("p2") == nil {
		t.Error("invalidate removed the wrong entry")
	}

	c.Reset()
	if c.Get("p2") != nil {
		t.Error("reset left entries behind")
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", 42)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("expected fresh hit, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry still served")
	}
}

func TestTTLCache_PutRestartsTTL(t *testing.T) {
	c := NewTTLCache[string](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", "v1")
	now = now.Add(45 * time.Second)
	c.Put("k", "v2")
	now = now.Add(45 * time.Second)

	if v, ok := c.Get("k"); !ok || v != "v2" {
		t.Errorf("expected refreshed entry, got %q %v", v, ok)
	}
}

func TestTTLCache_InvalidateAndReset(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("invalidated entry still cached")
	}
	c.Reset()
	if _, ok := c.Get("b"); ok {
		t.Error("reset left entries behind")
	}
}
