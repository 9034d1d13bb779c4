package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

func TestCache_GetMiss(t *testing.T) {
	c := New(10)

	if _, ok := c.Get("never inserted"); ok {
		t.Error("expected miss for key never inserted")
	}
}

func TestCache_PutAndGet(t *testing.T) {
	c := New(10)
	audio := []byte{0xff, 0x7f, 0x00}

	if !c.Put("Great, see you then!", audio) {
		t.Fatal("expected put to succeed below capacity")
	}

	got, ok := c.Get("Great, see you then!")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if !bytes.Equal(got, audio) {
		t.Errorf("expected %v, got %v", audio, got)
	}

	if _, ok := c.Get("great, see you then!"); ok {
		t.Error("expected keys to be case sensitive")
	}
	if _, ok := c.Get("Great, see you then! "); ok {
		t.Error("expected keys to match exactly")
	}
}

func TestCache_FullDropsNewEntries(t *testing.T) {
	c := New(2)

	c.Put("a", []byte{1})
	c.Put("b", []byte{2})

	if c.Put("c", []byte{3}) {
		t.Error("expected put at capacity to be rejected")
	}
	if c.Len() != 2 {
		t.Errorf("expected size 2, got %d", c.Len())
	}
	if _, ok := c.Get("c"); ok {
		t.Error("expected rejected key to be absent")
	}
	for _, k := range []string{"a", "b"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected existing key %q to survive", k)
		}
	}
}

func TestCache_PutExistingKeyKeepsFirstValue(t *testing.T) {
	c := New(1)
	c.Put("a", []byte{1})

	if !c.Put("a", []byte{2}) {
		t.Error("expected put of existing key to report stored")
	}
	got, _ := c.Get("a")
	if !bytes.Equal(got, []byte{1}) {
		t.Errorf("expected original value, got %v", got)
	}
}

func TestCache_StatsAndClear(t *testing.T) {
	c := New(5)
	c.Put("b", []byte{1})
	c.Put("a", []byte{2})

	stats := c.Stats()
	if stats.Size != 2 || stats.Capacity != 5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(stats.Keys) != 2 || stats.Keys[0] != "a" || stats.Keys[1] != "b" {
		t.Errorf("expected sorted keys [a b], got %v", stats.Keys)
	}

	if removed := c.Clear(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if !c.Put("c", []byte{3}) {
		t.Error("expected put to succeed after clear")
	}
}

func TestCache_DefaultCapacity(t *testing.T) {
	if got := New(0).Stats().Capacity; got != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, got)
	}
}

func TestCache_ConcurrentPutNeverExceedsCapacity(t *testing.T) {
	c := New(50)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				c.Put(key, []byte{byte(i)})
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Errorf("expected cache filled to capacity 50, got %d", c.Len())
	}
}
