package session

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabsplit/tabsplit/internal/bill"
)

var _ = Describe("BoltStore", func() {
	var (
		tmpDir string
		dbPath string
		store  *BoltStore
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		store, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	newSession := func() *Session {
		receipt := bill.Receipt{
			Items: []bill.Item{
				{ID: "1", Name: "Burger", Price: 10, Quantity: 1},
			},
			Totals: bill.Totals{Subtotal: 10, Tax: 1, Tip: 2, Total: 13, Currency: "$"},
		}
		return &Session{
			ID:          "test-id",
			Receipt:     receipt,
			Assignments: bill.NewAssignments(receipt),
			Transcript:  []Message{},
			ImagePath:   "test-id_receipt.jpg",
			ImageType:   "image/jpeg",
			Revision:    1,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
	}

	Describe("SaveSession", func() {
		It("round-trips a session", func() {
			Expect(store.SaveSession(newSession())).To(Succeed())

			saved, err := store.GetSession("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("test-id"))
			Expect(saved.Receipt.Items).To(HaveLen(1))
			Expect(saved.Assignments).To(HaveKey("1"))
		})

		It("preserves assignment order across the round trip", func() {
			sess := newSession()
			sess.Assignments = sess.Assignments.Apply([]bill.Action{
				{ItemIDs: []string{"1"}, People: []string{"Tom", "Ana", "Ben"}, Op: bill.OpAssign},
			})
			Expect(store.SaveSession(sess)).To(Succeed())

			saved, err := store.GetSession("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Assignments["1"]).To(Equal([]string{"Tom", "Ana", "Ben"}))
		})

		It("overwrites on repeated saves", func() {
			sess := newSession()
			Expect(store.SaveSession(sess)).To(Succeed())
			sess.Revision = 2
			Expect(store.SaveSession(sess)).To(Succeed())

			saved, err := store.GetSession("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Revision).To(Equal(2))
		})
	})

	Describe("GetSession", func() {
		When("the session does not exist", func() {
			It("returns ErrSessionNotFound", func() {
				_, err := store.GetSession("nonexistent")
				Expect(err).To(MatchError(ErrSessionNotFound))
			})
		})
	})

	Describe("DeleteSession", func() {
		It("removes the session", func() {
			Expect(store.SaveSession(newSession())).To(Succeed())
			Expect(store.DeleteSession("test-id")).To(Succeed())

			_, err := store.GetSession("test-id")
			Expect(err).To(MatchError(ErrSessionNotFound))
		})

		It("is a no-op for unknown ids", func() {
			Expect(store.DeleteSession("nonexistent")).To(Succeed())
		})
	})
})

var _ = Describe("LocalImageStore", func() {
	var (
		tmpDir string
		images *LocalImageStore
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		images, err = NewLocalImageStore(filepath.Join(tmpDir, "images"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("saves and retrieves a file", func() {
		path, err := images.Save("receipt.jpg", []byte("data"))
		Expect(err).NotTo(HaveOccurred())

		data, err := images.Get(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("data"))
	})

	It("deletes a file", func() {
		path, err := images.Save("receipt.jpg", []byte("data"))
		Expect(err).NotTo(HaveOccurred())
		Expect(images.Delete(path)).To(Succeed())

		_, err = images.Get(path)
		Expect(err).To(HaveOccurred())
	})

	It("errors when deleting a missing file", func() {
		Expect(images.Delete("missing.jpg")).To(HaveOccurred())
	})
})
