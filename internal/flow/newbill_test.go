package flow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ergydev/billed/internal/bill"
	"github.com/ergydev/billed/internal/session"
	"github.com/ergydev/billed/internal/store"
)

var _ = ginkgo.Describe("NewBill", func() {
	var (
		st      *mockStore
		sess    *mockSession
		router  *mockRouter
		newBill *NewBill
		png     store.File
	)

	ginkgo.BeforeEach(func() {
		st = newMockStore()
		sess = &mockSession{email: "email@test.com"}
		router = &mockRouter{}
		newBill = NewNewBill(st, sess, router, nil)
		png = store.File{Name: "image.png", ContentType: "image/png", Data: []byte("image.png")}
	})

	ginkgo.Describe("SelectFile", func() {
		ginkgo.When("the file is a png", func() {
			ginkgo.It("accepts and retains it", func() {
				sel := newBill.SelectFile(png)
				Expect(sel.Accepted).To(BeTrue())
				Expect(sel.Name).To(Equal("image.png"))
				Expect(newBill.Pending()).To(Equal("image.png"))
			})
		})

		ginkgo.When("the extension is upper case", func() {
			ginkgo.It("accepts it", func() {
				sel := newBill.SelectFile(store.File{Name: "SCAN.JPEG", ContentType: "image/jpeg"})
				Expect(sel.Accepted).To(BeTrue())
			})
		})

		ginkgo.When("the file is a txt", func() {
			var sel Selection

			ginkgo.BeforeEach(func() {
				newBill.SelectFile(png)
				sel = newBill.SelectFile(store.File{Name: "image.txt", ContentType: "image/txt"})
			})

			ginkgo.It("rejects it", func() {
				Expect(sel.Accepted).To(BeFalse())
				Expect(sel.Name).To(Equal("image.txt"))
			})

			ginkgo.It("clears the previously retained file", func() {
				Expect(newBill.Pending()).To(BeEmpty())
			})
		})
	})

	ginkgo.Describe("Submit", func() {
		var (
			form Form
			err  error
		)

		ginkgo.BeforeEach(func() {
			form = Form{
				Type:       "Transports",
				Name:       "Test",
				Date:       "2022-04-02",
				Amount:     "250",
				VAT:        "10",
				Pct:        "20",
				Commentary: "Testing the bill creation",
			}
			newBill.SelectFile(png)
		})

		ginkgo.JustBeforeEach(func() {
			err = newBill.Submit(context.Background(), form)
		})

		ginkgo.When("the expense type is not offered on the form", func() {
			var logs *bytes.Buffer

			ginkgo.BeforeEach(func() {
				logs = &bytes.Buffer{}
				newBill = NewNewBill(st, sess, router, slog.New(slog.NewTextHandler(logs, nil)))
				newBill.SelectFile(png)
				form.Type = "Voyages"
			})

			ginkgo.It("still submits the bill", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(st.updates).To(HaveLen(1))
				Expect(st.updates[0].Type).To(Equal("Voyages"))
			})

			ginkgo.It("logs the unknown type", func() {
				Expect(logs.String()).To(ContainSubstring("Unknown expense type"))
				Expect(logs.String()).To(ContainSubstring("type=Voyages"))
			})
		})

		ginkgo.When("the store accepts the bill", func() {
			ginkgo.It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			ginkgo.It("uploads before updating", func() {
				Expect(st.calls).To(Equal([]string{"create", "update"}))
			})

			ginkgo.It("uploads the retained file with the session email", func() {
				Expect(st.uploads).To(HaveLen(1))
				Expect(st.uploads[0].Email).To(Equal("email@test.com"))
				Expect(st.uploads[0].File).NotTo(BeNil())
				Expect(st.uploads[0].File.Name).To(Equal("image.png"))
			})

			ginkgo.It("saves the bill under the created key and file url", func() {
				Expect(st.updates).To(HaveLen(1))
				saved := st.updates[0]
				Expect(saved.ID).To(Equal(st.created.Key))
				Expect(saved.FileURL).To(Equal(st.created.FileURL))
				Expect(saved.FileName).To(Equal("test.jpg"))
			})

			ginkgo.It("builds the bill from the form", func() {
				saved := st.updates[0]
				Expect(saved.Email).To(Equal("email@test.com"))
				Expect(saved.Type).To(Equal("Transports"))
				Expect(saved.Name).To(Equal("Test"))
				Expect(saved.Date).To(Equal("2022-04-02"))
				Expect(saved.Amount).To(HaveValue(Equal(250)))
				Expect(saved.VAT).To(Equal("10"))
				Expect(saved.Pct).To(Equal(20))
				Expect(saved.Commentary).To(Equal("Testing the bill creation"))
				Expect(saved.Status).To(Equal(bill.StatusPending))
			})

			ginkgo.It("navigates to the bills page", func() {
				Expect(router.routes).To(Equal([]string{RouteBills}))
			})

			ginkgo.It("consumes the retained file", func() {
				Expect(newBill.Pending()).To(BeEmpty())
			})
		})

		ginkgo.When("pct is blank", func() {
			ginkgo.BeforeEach(func() {
				form.Pct = ""
			})

			ginkgo.It("defaults pct to 20", func() {
				Expect(st.updates[0].Pct).To(Equal(20))
			})
		})

		ginkgo.When("amount is not a number", func() {
			ginkgo.BeforeEach(func() {
				form.Amount = "lots"
			})

			ginkgo.It("omits the amount", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(st.updates[0].Amount).To(BeNil())
			})
		})

		ginkgo.When("the category is not one of the known ones", func() {
			ginkgo.BeforeEach(func() {
				form.Type = "Spaceships"
			})

			ginkgo.It("passes it through", func() {
				Expect(st.updates[0].Type).To(Equal("Spaceships"))
			})
		})

		ginkgo.When("the store does not echo the file name", func() {
			ginkgo.BeforeEach(func() {
				st.created.FileName = ""
			})

			ginkgo.It("keeps the uploaded file name", func() {
				Expect(st.updates[0].FileName).To(Equal("image.png"))
			})
		})

		ginkgo.When("no file was accepted", func() {
			ginkgo.BeforeEach(func() {
				newBill.SelectFile(store.File{Name: "image.txt"})
				st.createErr = errors.New("Erreur 400: no file provided")
			})

			ginkgo.It("still calls create, without a file", func() {
				Expect(st.uploads).To(HaveLen(1))
				Expect(st.uploads[0].File).To(BeNil())
			})

			ginkgo.It("surfaces the rejection", func() {
				var failure *bill.Failure
				Expect(errors.As(err, &failure)).To(BeTrue())
				Expect(failure.Op).To(Equal(bill.OpUpload))
			})
		})

		ginkgo.When("the upload fails", func() {
			ginkgo.BeforeEach(func() {
				st.createErr = errors.New("Erreur 500")
			})

			ginkgo.It("returns a classified upload failure", func() {
				var failure *bill.Failure
				Expect(errors.As(err, &failure)).To(BeTrue())
				Expect(failure.Op).To(Equal(bill.OpUpload))
				Expect(failure.Kind).To(Equal(bill.KindServerError))
				Expect(err).To(MatchError(st.createErr))
			})

			ginkgo.It("does not call update", func() {
				Expect(st.calls).To(Equal([]string{"create"}))
			})

			ginkgo.It("stays on the form", func() {
				Expect(router.routes).To(BeEmpty())
			})

			ginkgo.It("consumes the retained file", func() {
				Expect(newBill.Pending()).To(BeEmpty())
			})
		})

		ginkgo.When("the update fails", func() {
			ginkgo.BeforeEach(func() {
				st.updateErr = errors.New("Erreur 404")
			})

			ginkgo.It("returns a classified persist failure", func() {
				var failure *bill.Failure
				Expect(errors.As(err, &failure)).To(BeTrue())
				Expect(failure.Op).To(Equal(bill.OpPersist))
				Expect(failure.Kind).To(Equal(bill.KindNotFound))
				Expect(failure.Message).To(Equal("Erreur 404"))
			})

			ginkgo.It("stays on the form", func() {
				Expect(router.routes).To(BeEmpty())
			})
		})

		ginkgo.When("nobody is connected", func() {
			ginkgo.BeforeEach(func() {
				sess.err = session.ErrNoUser
			})

			ginkgo.It("returns the session error", func() {
				Expect(err).To(MatchError(session.ErrNoUser))
			})

			ginkgo.It("does not call the store", func() {
				Expect(st.calls).To(BeEmpty())
			})

			ginkgo.It("keeps the retained file", func() {
				Expect(newBill.Pending()).To(Equal("image.png"))
			})
		})
	})
})

var _ = ginkgo.Describe("Build", func() {
	ginkgo.It("trims text fields and coerces numbers", func() {
		b := Build(Form{Type: " Transports ", Name: " Taxi ", Amount: " 12 ", VAT: "abc", Pct: "x"}, "a@a")
		Expect(b.Type).To(Equal("Transports"))
		Expect(b.Name).To(Equal("Taxi"))
		Expect(b.Amount).To(HaveValue(Equal(12)))
		Expect(b.VAT).To(BeEmpty())
		Expect(b.Pct).To(Equal(20))
		Expect(b.ID).To(BeEmpty())
		Expect(b.FileURL).To(BeEmpty())
	})
})
