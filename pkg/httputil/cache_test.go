package httputil

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/knowmap/pkg/cache"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	backend, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	return NewCache(backend, nil, time.Hour)
}

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	tests := []struct {
		name  string
		key   string
		value map[string]string
	}{
		{"simple", "key1", map[string]string{"foo": "bar"}},
		{"empty", "key2", map[string]string{}},
		{"path", "nodes/pca", map[string]string{"title": "principal component analysis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.key, tt.value); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			var got map[string]string
			ok, err := c.Get(ctx, tt.key, &got)
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
			}
			if len(got) != len(tt.value) {
				t.Errorf("got %v, want %v", got, tt.value)
			}
			for k, v := range tt.value {
				if got[k] != v {
					t.Errorf("got[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestCache_Miss(t *testing.T) {
	c := newTestCache(t)
	var result string
	ok, err := c.Get(context.Background(), "missing", &result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("Get() returned true for missing key")
	}
}

func TestCache_UndecodableIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	_ = c.Set(ctx, "k", "a string")

	var n int
	if ok, err := c.Get(ctx, "k", &n); ok || err != nil {
		t.Errorf("Get() = %v, %v; want miss", ok, err)
	}
}

func TestCache_Nil(t *testing.T) {
	ctx := context.Background()
	var c *Cache
	if err := c.Set(ctx, "k", 1); err != nil {
		t.Errorf("nil Set() = %v", err)
	}
	var v int
	if ok, err := c.Get(ctx, "k", &v); ok || err != nil {
		t.Errorf("nil Get() = %v, %v", ok, err)
	}
	if c.Namespace("x") != nil {
		t.Error("Namespace on nil cache should stay nil")
	}
}

func TestCache_Namespace(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	t.Run("isolation", func(t *testing.T) {
		a := c.Namespace("content")
		b := c.Namespace("mirror")
		_ = a.Set(ctx, "nodes", "a-data")
		_ = b.Set(ctx, "nodes", "b-data")

		var av, bv string
		_, _ = a.Get(ctx, "nodes", &av)
		_, _ = b.Get(ctx, "nodes", &bv)
		if av != "a-data" || bv != "b-data" {
			t.Errorf("got %q, %q", av, bv)
		}
	})

	t.Run("chained", func(t *testing.T) {
		inner := c.Namespace("content").Namespace("v2")
		if inner.namespace != "content/v2" {
			t.Errorf("namespace = %q", inner.namespace)
		}
		_ = inner.Set(ctx, "k", "v")

		var v string
		if ok, _ := c.Namespace("content").Get(ctx, "k", &v); ok {
			t.Error("value visible without full namespace chain")
		}
	})

	t.Run("preservesTTL", func(t *testing.T) {
		if c.Namespace("x").TTL() != time.Hour {
			t.Error("namespace lost the TTL")
		}
	})
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	_ = c.Set(ctx, "k", "v")
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	var v string
	if ok, _ := c.Get(ctx, "k", &v); ok {
		t.Error("entry survived Delete")
	}
}
