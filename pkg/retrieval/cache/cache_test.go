package cache_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/retrieval"
	"github.com/gentaxai/gentax/pkg/retrieval/cache"
)

var _ = Describe("Gateway", func() {
	var (
		calls int
		fail  bool
		next  retrieval.Gateway
		ctx   context.Context
	)

	BeforeEach(func() {
		calls = 0
		fail = false
		ctx = context.Background()
		next = retrieval.GatewayFunc(func(_ context.Context, query string, k int) ([]retrieval.Snippet, error) {
			calls++
			if fail {
				return nil, errors.New("boom")
			}
			return []retrieval.Snippet{retrieval.NewSnippet("kb", "1", query)}, nil
		})
	})

	It("serves repeated queries from the cache", func() {
		g := cache.New(next, 10, time.Minute)

		first, err := g.Retrieve(ctx, "gst", 5)
		Expect(err).NotTo(HaveOccurred())
		second, err := g.Retrieve(ctx, "gst", 5)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(calls).To(Equal(1))
	})

	It("keys on k as well as the query", func() {
		g := cache.New(next, 10, time.Minute)
		_, _ = g.Retrieve(ctx, "gst", 5)
		_, _ = g.Retrieve(ctx, "gst", 3)
		Expect(calls).To(Equal(2))
		Expect(g.Len()).To(Equal(2))
	})

	It("does not cache errors", func() {
		g := cache.New(next, 10, time.Minute)
		fail = true
		_, err := g.Retrieve(ctx, "gst", 5)
		Expect(err).To(HaveOccurred())

		fail = false
		_, err = g.Retrieve(ctx, "gst", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(2))
	})

	It("expires entries after the ttl", func() {
		g := cache.New(next, 10, 20*time.Millisecond)
		_, _ = g.Retrieve(ctx, "gst", 5)
		time.Sleep(60 * time.Millisecond)
		_, _ = g.Retrieve(ctx, "gst", 5)
		Expect(calls).To(Equal(2))
	})

	It("evicts the least recently used entry", func() {
		g := cache.New(next, 2, time.Minute)
		_, _ = g.Retrieve(ctx, "a", 5)
		_, _ = g.Retrieve(ctx, "b", 5)
		_, _ = g.Retrieve(ctx, "a", 5)
		_, _ = g.Retrieve(ctx, "c", 5)
		Expect(calls).To(Equal(3))

		_, _ = g.Retrieve(ctx, "a", 5)
		Expect(calls).To(Equal(3))
		_, _ = g.Retrieve(ctx, "b", 5)
		Expect(calls).To(Equal(4))
	})

	It("forgets everything on Purge", func() {
		g := cache.New(next, 10, time.Minute)
		_, _ = g.Retrieve(ctx, "gst", 5)
		g.Purge()
		Expect(g.Len()).To(Equal(0))
	})
})
