package keyword_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/retrieval"
	"github.com/gentaxai/gentax/pkg/retrieval/keyword"
)

const gstDoc = `# GST

Goods and Services Tax is an indirect tax levied on the supply of goods and services.

Registration under GST is mandatory once aggregate turnover exceeds the threshold.
`

const packDoc = `- source: income-tax-act
  chunk_id: 80
  text: Section 80C allows deductions up to 1.5 lakh for specified investments.
- text: MSME registration is done on the Udyam portal.
`

func write(dir, name, body string) {
	path := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
}

var _ = Describe("Tokenize", func() {
	It("lowercases and splits on non alphanumerics", func() {
		Expect(keyword.Tokenize("What is GST? Section-80C, ₹1.5L")).To(Equal(
			[]string{"what", "is", "gst", "section", "80c", "1", "5l"},
		))
	})
})

var _ = Describe("Index", func() {
	chunk := func(text string) keyword.Chunk { return keyword.Chunk{Text: text} }

	It("ranks the more relevant chunk first and drops zero scores", func() {
		ix := keyword.NewIndex([]keyword.Chunk{
			chunk("income tax slabs for individuals"),
			chunk("gst gst registration threshold"),
			chunk("gst rates on services"),
		})

		hits := ix.Search("GST registration", 5)
		Expect(hits).To(HaveLen(2))
		Expect(hits[0].Chunk.Text).To(Equal("gst gst registration threshold"))
		Expect(hits[1].Chunk.Text).To(Equal("gst rates on services"))
	})

	It("keeps index order for ties and honours k", func() {
		ix := keyword.NewIndex([]keyword.Chunk{chunk("tds rules"), chunk("tds rules"), chunk("tds rules")})
		hits := ix.Search("tds", 2)
		Expect(hits).To(HaveLen(2))
		Expect(hits[0].Score).To(Equal(hits[1].Score))
	})

	It("returns nothing for empty queries or k", func() {
		ix := keyword.NewIndex([]keyword.Chunk{chunk("gst")})
		Expect(ix.Search("   ", 5)).To(BeEmpty())
		Expect(ix.Search("gst", 0)).To(BeEmpty())
		Expect(keyword.NewIndex(nil).Search("gst", 5)).To(BeEmpty())
	})
})

var _ = Describe("LoadDir", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "knowledge-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("splits text files into paragraphs with 1-based chunk ids", func() {
		write(dir, "gst/overview.md", gstDoc)

		chunks, err := keyword.LoadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(3))
		Expect(*chunks[0].Source).To(Equal("gst/overview.md"))
		Expect(*chunks[0].ChunkID).To(Equal("1"))
		Expect(chunks[0].Text).To(Equal("# GST"))
		Expect(*chunks[2].ChunkID).To(Equal("3"))
	})

	It("reads yaml packs and leaves missing fields unset", func() {
		write(dir, "packs/tax.yaml", packDoc)

		chunks, err := keyword.LoadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(2))
		Expect(*chunks[0].Source).To(Equal("income-tax-act"))
		Expect(*chunks[0].ChunkID).To(Equal("80"))
		Expect(chunks[1].Source).To(BeNil())
		Expect(chunks[1].ChunkID).To(BeNil())
	})

	It("accepts packs wrapped in a snippets key", func() {
		write(dir, "pack.yml", "snippets:\n  - source: rbi\n    text: Repo rate is set by the MPC.\n")

		chunks, err := keyword.LoadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(1))
		Expect(*chunks[0].Source).To(Equal("rbi"))
	})

	It("ignores other files and hidden directories", func() {
		write(dir, "notes.pdf", "binary")
		write(dir, ".git/HEAD.txt", "ref")

		chunks, err := keyword.LoadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(BeEmpty())
	})

	It("yields nothing for a missing directory", func() {
		chunks, err := keyword.LoadDir(filepath.Join(dir, "absent"))
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(BeEmpty())
	})

	It("fails on a broken pack", func() {
		write(dir, "bad.yaml", "snippets: [unclosed")
		_, err := keyword.LoadDir(dir)
		Expect(err).To(MatchError(ContainSubstring("bad.yaml")))
	})
})

var _ = Describe("Retriever", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "knowledge-*")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("returns snippets carrying provenance", func() {
		write(dir, "gst.md", gstDoc)
		write(dir, "pack.yaml", packDoc)

		r, err := keyword.New(dir)
		Expect(err).NotTo(HaveOccurred())

		snippets, err := r.Retrieve(ctx, "GST registration turnover", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(snippets).NotTo(BeEmpty())
		Expect(*snippets[0].Source).To(Equal("gst.md"))
		Expect(*snippets[0].ChunkID).To(Equal("3"))
		Expect(*snippets[0].Text).To(ContainSubstring("aggregate turnover"))
	})

	It("returns no snippets when nothing matches", func() {
		write(dir, "gst.md", gstDoc)
		r, err := keyword.New(dir)
		Expect(err).NotTo(HaveOccurred())

		snippets, err := r.Retrieve(ctx, "cryptocurrency", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(snippets).To(BeEmpty())
	})

	It("keeps the previous index when a reload fails", func() {
		write(dir, "gst.md", gstDoc)
		r, err := keyword.New(dir)
		Expect(err).NotTo(HaveOccurred())
		before := r.Len()

		write(dir, "bad.yaml", "snippets: [unclosed")
		err = r.Reload()
		Expect(err).To(MatchError(retrieval.ErrUnavailable))
		Expect(r.Len()).To(Equal(before))
	})

	It("honours a cancelled context", func() {
		r, err := keyword.New(dir)
		Expect(err).NotTo(HaveOccurred())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = r.Retrieve(cctx, "gst", 5)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("re-indexes when files change under Watch", func() {
		r, err := keyword.New(dir, keyword.WithDebounce(20*time.Millisecond))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Len()).To(Equal(0))

		wctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- r.Watch(wctx) }()
		defer func() {
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		}()

		// give the watcher time to register
		time.Sleep(50 * time.Millisecond)
		write(dir, "gst.md", gstDoc)

		Eventually(r.Len, 2*time.Second, 20*time.Millisecond).Should(Equal(3))
	})
})
