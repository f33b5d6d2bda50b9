package sessionutils_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/session/filestore"
	"github.com/gentaxai/gentax/pkg/session/inmemory"
	"github.com/gentaxai/gentax/pkg/session/sqlstore"
	sessionutils "github.com/gentaxai/gentax/pkg/session/utils"
)

var _ = Describe("NewDriver", func() {
	var (
		ctx context.Context
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		dir, err = os.MkdirTemp("", "gentax-sessionutils-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	It("defaults to the file driver", func() {
		path := filepath.Join(dir, "sessions.json")
		d, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{Path: path})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&filestore.Driver{}))
		Expect(d.(*filestore.Driver).Path()).To(Equal(path))
	})

	It("builds the in-memory driver", func() {
		d, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{ProviderType: "memory"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens a sqlite driver", func() {
		d, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{
			ProviderType: "sqlite",
			SQLitePath:   filepath.Join(dir, "gentax.sqlite"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlstore.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("requires a DSN for postgres", func() {
		_, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{ProviderType: "postgres"})
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn")))
	})

	It("rejects unknown providers", func() {
		_, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{ProviderType: "mongo"})
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})
})
