package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/retrieval"
	"github.com/gentaxai/gentax/pkg/retrieval/remote"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		received map[string]any
	)

	BeforeEach(func() {
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	respond := func(status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}
	}

	It("requires an endpoint", func() {
		_, err := remote.New("")
		Expect(err).To(HaveOccurred())
	})

	It("posts the query and decodes a bare array with loose field types", func() {
		handler = respond(http.StatusOK, `[
			{"source": "cbic", "chunk_id": 7, "text": " GST rate "},
			{"text": "no provenance", "chunk_id": null}
		]`)

		c, err := remote.New(server.URL)
		Expect(err).NotTo(HaveOccurred())

		snippets, err := c.Retrieve(context.Background(), "gst rate", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(received).To(Equal(map[string]any{"query": "gst rate", "k": float64(5)}))

		Expect(snippets).To(HaveLen(2))
		Expect(*snippets[0].Source).To(Equal("cbic"))
		Expect(*snippets[0].ChunkID).To(Equal("7"))
		Expect(*snippets[0].Text).To(Equal(" GST rate "))
		Expect(snippets[1].Source).To(BeNil())
		Expect(snippets[1].ChunkID).To(BeNil())
	})

	It("decodes a results envelope", func() {
		handler = respond(http.StatusOK, `{"results": [{"source": "rbi", "text": "repo"}]}`)

		c, err := remote.New(server.URL)
		Expect(err).NotTo(HaveOccurred())

		snippets, err := c.Retrieve(context.Background(), "repo rate", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(snippets).To(Equal([]retrieval.Snippet{{Source: retrieval.Opt("rbi"), Text: retrieval.Opt("repo")}}))
	})

	It("treats an empty body as no snippets", func() {
		handler = respond(http.StatusOK, "")

		c, err := remote.New(server.URL)
		Expect(err).NotTo(HaveOccurred())

		snippets, err := c.Retrieve(context.Background(), "q", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(snippets).To(BeEmpty())
	})

	It("wraps non-2xx responses as unavailable", func() {
		handler = respond(http.StatusBadGateway, "upstream down")

		c, err := remote.New(server.URL)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Retrieve(context.Background(), "q", 3)
		Expect(err).To(MatchError(retrieval.ErrUnavailable))
		Expect(err.Error()).To(ContainSubstring("status 502"))
	})

	It("wraps transport failures as unavailable", func() {
		c, err := remote.New(server.URL)
		Expect(err).NotTo(HaveOccurred())
		server.Close()

		_, err = c.Retrieve(context.Background(), "q", 3)
		Expect(err).To(MatchError(retrieval.ErrUnavailable))
	})

	It("rejects malformed payloads", func() {
		handler = respond(http.StatusOK, `{"results": "nope"}`)

		c, err := remote.New(server.URL)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Retrieve(context.Background(), "q", 3)
		Expect(err).To(MatchError(ContainSubstring("decode retrieval response")))
	})
})
