package servecmder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/api"
	"github.com/gentaxai/gentax/pkg/config"
	"github.com/gentaxai/gentax/pkg/logger"
)

var _ = Describe("NewServeCmd", func() {
	It("registers every config-backed flag plus --log-file", func() {
		cmd := NewServeCmd()
		for _, key := range serveFlagKeys {
			Expect(cmd.Flags().Lookup(config.Registry[key].Name)).NotTo(BeNil(), key)
		}
		Expect(cmd.Flags().Lookup("log-file")).NotTo(BeNil())
	})

	It("defaults flags from the default config", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8000"))
		Expect(cmd.Flags().Lookup("top-k").DefValue).To(Equal("5"))
	})
})

var _ = Describe("newServices", func() {
	var (
		ctx      context.Context
		cfg      *config.Config
		upstream *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()

		dir, err := os.MkdirTemp("", "gentax-serve-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		knowledge := filepath.Join(dir, "knowledge")
		Expect(os.MkdirAll(knowledge, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(knowledge, "gst.md"),
			[]byte("GST registration is mandatory above the threshold turnover.\n\nIncome tax slabs differ by regime."), 0o600)).To(Succeed())

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"Register once you cross the threshold."},"done":true}`))
		}))
		DeferCleanup(upstream.Close)

		cfg = config.NewDefaultConfig()
		cfg.Storage.Provider = "file"
		cfg.Storage.Path = filepath.Join(dir, "sessions.json")
		cfg.Retrieval.KnowledgeDir = knowledge
		cfg.Inference.Provider = "ollama"
		cfg.Inference.BaseURL = upstream.URL
		cfg.Server.StaticDir = filepath.Join(dir, "static")
	})

	It("wires a working chat API end to end", func() {
		svc, err := newServices(ctx, cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question":"When is GST registration mandatory?"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := svc.api.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var body api.ChatResponse
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.Answer).To(Equal("Register once you cross the threshold."))
		Expect(body.Citations).NotTo(BeEmpty())
		Expect(body.Citations[0].Source).To(Equal("gst.md"))

		svc.close()

		raw, err := os.ReadFile(cfg.Storage.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(body.SessionID))
	})

	It("fails fast on an unknown storage provider", func() {
		cfg.Storage.Provider = "mongo"
		_, err := newServices(ctx, cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("creating session store")))
	})

	It("fails fast without an API key for the OpenAI-compatible provider", func() {
		for _, k := range []string{"GROQ_API_KEY", "OPENAI_API_KEY"} {
			if v, ok := os.LookupEnv(k); ok {
				os.Unsetenv(k)
				DeferCleanup(os.Setenv, k, v)
			}
		}
		cfg.Inference.Provider = "openai"
		cfg.Inference.APIKey = ""

		_, err := newServices(ctx, cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("creating inference gateway")))
	})
})
