package httputil_test

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/knowmap/pkg/cache"
	"github.com/matzehuels/knowmap/pkg/httputil"
)

func ExampleCache() {
	ctx := context.Background()
	backend, _ := cache.NewMemoryCache(0)
	c := httputil.NewCache(backend, nil, time.Hour).Namespace("content")

	_ = c.Set(ctx, "nodes/pca", map[string]string{"title": "principal component analysis"})

	var got map[string]string
	ok, err := c.Get(ctx, "nodes/pca", &got)
	fmt.Println(ok, err, got["title"])
	// Output:
	// true <nil> principal component analysis
}

func ExampleRetry() {
	calls := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return httputil.Retryable(fmt.Errorf("503 service unavailable"))
		}
		return nil
	})
	fmt.Println("calls:", calls, "err:", err)
	// Output:
	// calls: 2 err: <nil>
}
