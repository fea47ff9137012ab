package track

import "testing"

func TestFIFOCachePutGet(t *testing.T) {
	c := NewFIFOCache[string, int](4)

	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %d (ok=%v)", v, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("expected b=2, got %d (ok=%v)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestFIFOCacheEvictsOldest(t *testing.T) {
	c := NewFIFOCache[int, int](3)

	c.Put(1, 10)
	c.Put(2, 20)
	c.Put(3, 30)
	c.Put(4, 40) // evicts 1

	if _, ok := c.Get(1); ok {
		t.Error("expected oldest entry evicted")
	}
	for _, k := range []int{2, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected key %d to survive", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("expected len 3, got %d", c.Len())
	}
}

func TestFIFOCacheReinsertKeepsPosition(t *testing.T) {
	c := NewFIFOCache[int, int](2)

	c.Put(1, 10)
	c.Put(2, 20)
	c.Put(1, 11) // update, not reinsertion
	c.Put(3, 30) // evicts 1, still the oldest

	if _, ok := c.Get(1); ok {
		t.Error("expected updated key to keep its insertion position and be evicted first")
	}
	if v, _ := c.Get(2); v != 20 {
		t.Errorf("expected 2=20, got %d", v)
	}
}

func TestFIFOCacheMinCapacity(t *testing.T) {
	c := NewFIFOCache[int, int](0)

	c.Put(1, 10)
	c.Put(2, 20)

	if c.Len() != 1 {
		t.Errorf("expected capacity clamped to 1, len %d", c.Len())
	}
	if _, ok := c.Get(2); !ok {
		t.Error("expected newest entry present")
	}
}
