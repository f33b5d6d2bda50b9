package inferenceutils_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/inference/ollama"
	"github.com/gentaxai/gentax/pkg/inference/openai"
	inferenceutils "github.com/gentaxai/gentax/pkg/inference/utils"
)

var _ = Describe("NewGateway", func() {
	BeforeEach(func() {
		for _, k := range []string{"GROQ_API_KEY", "OPENAI_API_KEY"} {
			if v, ok := os.LookupEnv(k); ok {
				os.Unsetenv(k)
				DeferCleanup(os.Setenv, k, v)
			}
		}
	})

	It("builds the OpenAI-compatible client with an explicit key", func() {
		gw, err := inferenceutils.NewGateway(&inferenceutils.NewGatewayOpts{ProviderType: "openai", APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(gw).To(BeAssignableToTypeOf(&openai.Client{}))
	})

	It("falls back to GROQ_API_KEY", func() {
		os.Setenv("GROQ_API_KEY", "from-env")
		defer os.Unsetenv("GROQ_API_KEY")

		Expect(inferenceutils.ResolveAPIKey("")).To(Equal("from-env"))
		Expect(inferenceutils.ResolveAPIKey("explicit")).To(Equal("explicit"))
	})

	It("fails without any key", func() {
		_, err := inferenceutils.NewGateway(&inferenceutils.NewGatewayOpts{ProviderType: "openai"})
		Expect(err).To(MatchError(ContainSubstring("no API key")))
	})

	It("builds the Ollama client without a key", func() {
		gw, err := inferenceutils.NewGateway(&inferenceutils.NewGatewayOpts{ProviderType: "ollama", BaseURL: openai.DefaultBaseURL})
		Expect(err).NotTo(HaveOccurred())
		Expect(gw).To(BeAssignableToTypeOf(&ollama.Client{}))
	})

	It("rejects unknown providers", func() {
		_, err := inferenceutils.NewGateway(&inferenceutils.NewGatewayOpts{ProviderType: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring("unsupported inference provider")))
	})
})
