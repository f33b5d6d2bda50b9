package sqlstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/llm"
	"github.com/gentaxai/gentax/pkg/session"
	"github.com/gentaxai/gentax/pkg/session/sqlstore"
)

func turns(contents ...string) []session.Turn {
	out := []session.Turn{{Role: llm.RoleSystem, Content: "preamble"}}
	for _, c := range contents {
		out = append(out, session.Turn{Role: llm.RoleUser, Content: c})
	}
	return out
}

// driverBehaviour runs the shared driver contract against whatever newDriver returns.
func driverBehaviour(newDriver func(ctx context.Context) *sqlstore.Driver) {
	var (
		ctx    context.Context
		driver *sqlstore.Driver
		a, b   string
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)

		// unique ids so shared PostgreSQL databases do not leak state between specs
		run := strconv.FormatInt(time.Now().UnixNano(), 36)
		a, b = "a-"+run, "b-"+run
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("upserts changed sessions and loads them back", func() {
		snap := session.Snapshot{
			Sessions: map[string][]session.Turn{a: turns("q1"), b: turns()},
			Changed:  []string{a, b},
		}
		Expect(driver.Save(ctx, snap)).To(Succeed())

		loaded, err := driver.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveKeyWithValue(a, turns("q1")))
		Expect(loaded).To(HaveKeyWithValue(b, turns()))
	})

	It("only writes sessions listed as changed", func() {
		snap := session.Snapshot{
			Sessions: map[string][]session.Turn{a: turns(), b: turns()},
			Changed:  []string{a},
		}
		Expect(driver.Save(ctx, snap)).To(Succeed())

		loaded, err := driver.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveKey(a))
		Expect(loaded).NotTo(HaveKey(b))
	})

	It("never replaces a transcript with a shorter one", func() {
		long := session.Snapshot{Sessions: map[string][]session.Turn{a: turns("q1", "q2")}, Changed: []string{a}}
		short := session.Snapshot{Sessions: map[string][]session.Turn{a: turns("q1")}, Changed: []string{a}}

		Expect(driver.Save(ctx, long)).To(Succeed())
		Expect(driver.Save(ctx, short)).To(Succeed())

		loaded, err := driver.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded[a]).To(Equal(turns("q1", "q2")))

	})

	It("round-trips through a Store", func() {
		store := session.NewStore(driver)
		Expect(store.Load(ctx)).To(Succeed())
		sess, _ := store.Resolve("")
		Expect(store.Append(sess.ID,
			session.Turn{Role: llm.RoleUser, Content: "GST on ₹ exports?"},
			session.Turn{Role: llm.RoleAssistant, Content: "Zero rated."},
		)).To(Succeed())
		Expect(store.Persist(ctx)).To(Succeed())

		reloaded := session.NewStore(driver)
		Expect(reloaded.Load(ctx)).To(Succeed())
		got, err := reloaded.Transcript(sess.ID)
		Expect(err).NotTo(HaveOccurred())
		want, _ := store.Transcript(sess.ID)
		Expect(got).To(Equal(want))
	})
}

var _ = Describe("SQLite Driver", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "sqlstore-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	driverBehaviour(func(ctx context.Context) *sqlstore.Driver {
		d, err := sqlstore.NewSQLiteDriver(ctx, filepath.Join(tmpDir, "gentax.sqlite"))
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	It("creates the database file", func() {
		dbPath := filepath.Join(tmpDir, "created.sqlite")
		d, err := sqlstore.NewSQLiteDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("works in memory", func() {
		d, err := sqlstore.NewSQLiteDriver(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		loaded, err := d.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeEmpty())
	})
})

var _ = Describe("PostgreSQL Driver", func() {
	driverBehaviour(func(ctx context.Context) *sqlstore.Driver {
		dsn := os.Getenv("GENTAX_TEST_POSTGRES_DSN")
		if dsn == "" {
			Skip("GENTAX_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
		}
		d, err := sqlstore.NewPostgresDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())
		return d
	})
})
