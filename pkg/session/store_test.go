package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gentaxai/gentax/pkg/llm"
	"github.com/gentaxai/gentax/pkg/session"
	"github.com/gentaxai/gentax/pkg/session/inmemory"
)

// failingDriver fails Load and Save with configurable errors.
type failingDriver struct {
	*inmemory.Driver
	loadErr error
	saveErr error
	loaded  map[string][]session.Turn
}

func (f *failingDriver) Load(ctx context.Context) (map[string][]session.Turn, error) {
	if f.loadErr != nil {
		return f.loaded, f.loadErr
	}
	return f.Driver.Load(ctx)
}

func (f *failingDriver) Save(ctx context.Context, snap session.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Driver.Save(ctx, snap)
}

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		store  *session.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		store = session.NewStore(driver)
		Expect(store.Load(ctx)).To(Succeed())
	})

	Describe("Resolve", func() {
		It("creates a session holding only the preamble for an empty id", func() {
			sess, created := store.Resolve("")
			Expect(created).To(BeTrue())
			Expect(sess.ID).NotTo(BeEmpty())
			Expect(sess.Turns).To(Equal([]session.Turn{
				{Role: llm.RoleSystem, Content: session.DefaultPreamble},
			}))
		})

		It("creates an unknown non-empty id under that id", func() {
			sess, created := store.Resolve("client-chosen")
			Expect(created).To(BeTrue())
			Expect(sess.ID).To(Equal("client-chosen"))
			Expect(store.List()).To(Equal([]string{"client-chosen"}))
		})

		It("uses the configured preamble and id generator", func() {
			store = session.NewStore(driver,
				session.WithPreamble("be brief"),
				session.WithIDGenerator(func() string { return "fixed" }),
			)
			sess, _ := store.Resolve("")
			Expect(sess.ID).To(Equal("fixed"))
			Expect(sess.Turns[0].Content).To(Equal("be brief"))
		})

		It("is idempotent for a known id with no intervening append", func() {
			first, _ := store.Resolve("s1")
			Expect(store.Append("s1", session.Turn{Role: llm.RoleUser, Content: "hi"})).To(Succeed())

			again, created := store.Resolve("s1")
			Expect(created).To(BeFalse())
			twice, _ := store.Resolve("s1")
			Expect(twice).To(Equal(again))
			Expect(again.Turns).To(HaveLen(len(first.Turns) + 1))
		})

		It("returns defensive copies", func() {
			sess, _ := store.Resolve("s1")
			sess.Turns[0].Content = "tampered"

			turns, err := store.Transcript("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns[0].Content).To(Equal(session.DefaultPreamble))
		})
	})

	Describe("Append", func() {
		It("appends in order after the preamble", func() {
			store.Resolve("s1")
			Expect(store.Append("s1",
				session.Turn{Role: llm.RoleAssistant, Content: "CONTEXT:\n..."},
				session.Turn{Role: llm.RoleUser, Content: "q"},
			)).To(Succeed())
			Expect(store.Append("s1", session.Turn{Role: llm.RoleAssistant, Content: "a"})).To(Succeed())

			turns, err := store.Transcript("s1")
			Expect(err).NotTo(HaveOccurred())
			roles := []llm.Role{}
			for _, t := range turns {
				roles = append(roles, t.Role)
			}
			Expect(roles).To(Equal([]llm.Role{llm.RoleSystem, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant}))
		})

		It("rejects unknown ids", func() {
			err := store.Append("missing", session.Turn{Role: llm.RoleUser, Content: "q"})
			Expect(errors.Is(err, session.ErrNotFound)).To(BeTrue())
		})

		It("does not alter transcripts copied before the append", func() {
			before, _ := store.Resolve("s1")
			Expect(store.Append("s1", session.Turn{Role: llm.RoleUser, Content: "q"})).To(Succeed())
			Expect(before.Turns).To(HaveLen(1))
		})
	})

	Describe("Transcript", func() {
		It("returns ErrNotFound for unknown ids", func() {
			_, err := store.Transcript("nope")
			Expect(err).To(MatchError(session.ErrNotFound))
		})
	})

	Describe("Persist and Load", func() {
		It("round-trips the in-memory mapping", func() {
			store.Resolve("a")
			store.Resolve("b")
			Expect(store.Append("a", session.Turn{Role: llm.RoleUser, Content: "₹ limits?"})).To(Succeed())
			Expect(store.Persist(ctx)).To(Succeed())

			reloaded := session.NewStore(driver)
			Expect(reloaded.Load(ctx)).To(Succeed())
			Expect(reloaded.List()).To(Equal(store.List()))
			for _, id := range store.List() {
				want, _ := store.Transcript(id)
				got, _ := reloaded.Transcript(id)
				Expect(got).To(Equal(want))
			}
		})

		It("keeps changed sessions pending when the driver fails", func() {
			fd := &failingDriver{Driver: inmemory.NewDriver(), saveErr: errors.New("disk full")}
			store = session.NewStore(fd)
			store.Resolve("a")

			Expect(store.Persist(ctx)).To(MatchError(ContainSubstring("disk full")))

			fd.saveErr = nil
			Expect(store.Persist(ctx)).To(Succeed())

			loaded, err := fd.Driver.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(HaveKey("a"))
		})

		It("starts empty and succeeds when the driver reports malformed data", func() {
			fd := &failingDriver{
				Driver:  inmemory.NewDriver(),
				loadErr: fmt.Errorf("%w: bad json", session.ErrMalformed),
			}
			store = session.NewStore(fd)
			Expect(store.Load(ctx)).To(Succeed())
			Expect(store.List()).To(BeEmpty())
		})

		It("keeps recoverable sessions from a partially malformed backend", func() {
			fd := &failingDriver{
				Driver:  inmemory.NewDriver(),
				loadErr: fmt.Errorf("%w: row x", session.ErrMalformed),
				loaded: map[string][]session.Turn{
					"ok": {{Role: llm.RoleSystem, Content: "p"}},
				},
			}
			store = session.NewStore(fd)
			Expect(store.Load(ctx)).To(Succeed())
			Expect(store.List()).To(Equal([]string{"ok"}))
		})

		It("prepends the preamble to sessions missing their system turn", func() {
			driver.Seed(map[string][]session.Turn{
				"bare":  {{Role: llm.RoleUser, Content: "What is TDS?"}},
				"empty": {},
				"ok":    {{Role: llm.RoleSystem, Content: "p"}, {Role: llm.RoleUser, Content: "q"}},
			})
			store = session.NewStore(driver, session.WithPreamble("You are GenTaxAI."))
			Expect(store.Load(ctx)).To(Succeed())

			bare, err := store.Transcript("bare")
			Expect(err).NotTo(HaveOccurred())
			Expect(bare).To(Equal([]session.Turn{
				{Role: llm.RoleSystem, Content: "You are GenTaxAI."},
				{Role: llm.RoleUser, Content: "What is TDS?"},
			}))

			empty, _ := store.Transcript("empty")
			Expect(empty).To(Equal([]session.Turn{{Role: llm.RoleSystem, Content: "You are GenTaxAI."}}))

			ok, _ := store.Transcript("ok")
			Expect(ok).To(HaveLen(2))
			Expect(ok[0].Content).To(Equal("p"))

			Expect(store.Persist(ctx)).To(Succeed())
			persisted, err := driver.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted["bare"][0].Role).To(Equal(llm.RoleSystem))
		})

		It("returns other load errors", func() {
			fd := &failingDriver{Driver: inmemory.NewDriver(), loadErr: errors.New("permission denied")}
			store = session.NewStore(fd)
			Expect(store.Load(ctx)).To(MatchError(ContainSubstring("permission denied")))
		})
	})

	Describe("Lock", func() {
		It("serializes work on the same session", func() {
			release := store.Lock("s1")

			acquired := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				unlock := store.Lock("s1")
				close(acquired)
				unlock()
			}()

			Consistently(acquired, 50*time.Millisecond).ShouldNot(BeClosed())
			release()
			Eventually(acquired).Should(BeClosed())
		})

		It("never blocks other sessions", func() {
			release := store.Lock("s1")
			defer release()

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				unlock := store.Lock("s2")
				unlock()
				close(done)
			}()
			Eventually(done).Should(BeClosed())
		})

		It("drops lock entries once every holder has released", func() {
			release := store.Lock("s1")

			waiting := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				unlock := store.Lock("s1")
				unlock()
				close(waiting)
			}()

			Eventually(store.HeldLocks).Should(Equal(1))
			release()
			Eventually(waiting).Should(BeClosed())
			Expect(store.HeldLocks()).To(Equal(0))

			release()
			Expect(store.HeldLocks()).To(Equal(0))
		})

		It("keeps transcripts consistent under concurrent appends", func() {
			store.Resolve("s1")
			var wg sync.WaitGroup
			for i := range 20 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					unlock := store.Lock("s1")
					defer unlock()
					_ = store.Append("s1",
						session.Turn{Role: llm.RoleUser, Content: fmt.Sprintf("q%d", i)},
						session.Turn{Role: llm.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
					)
				}(i)
			}
			wg.Wait()

			turns, err := store.Transcript("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(41))
			Expect(turns[0].Role).To(Equal(llm.RoleSystem))
			for i := 1; i < len(turns); i += 2 {
				Expect(turns[i].Role).To(Equal(llm.RoleUser))
				Expect(turns[i+1].Content[1:]).To(Equal(turns[i].Content[1:]))
			}
		})
	})

	It("mints ids without creating state", func() {
		id := store.NewID()
		Expect(id).NotTo(BeEmpty())
		Expect(store.List()).NotTo(ContainElement(id))
	})
})
