package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ergydev/billed/internal/bill"
	"github.com/ergydev/billed/internal/session"
	"github.com/ergydev/billed/internal/store"
)

// Form holds the raw values of the new bill form
type Form struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Date       string `json:"datepicker"`
	Amount     string `json:"amount"`
	VAT        string `json:"vat"`
	Pct        string `json:"pct"`
	Commentary string `json:"commentary"`
}

// Selection reports what happened to a chosen file
type Selection struct {
	Name     string `json:"fileName"`
	Accepted bool   `json:"accepted"`
}

// NewBill drives the new bill form. A NewBill instance is one form:
// it retains the accepted receipt until a submission consumes it.
type NewBill struct {
	store   store.Store
	session session.Session
	router  Router
	logger  *slog.Logger

	mu   sync.Mutex
	file *store.File
}

// NewNewBill creates a form flow
func NewNewBill(st store.Store, sess session.Session, router Router, logger *slog.Logger) *NewBill {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewBill{
		store:   st,
		session: sess,
		router:  router,
		logger:  logger,
	}
}

// SelectFile keeps f as the pending receipt if it is a jpg, jpeg or png image.
// Any other file clears the pending receipt.
func (n *NewBill) SelectFile(f store.File) Selection {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !bill.AllowedFile(f.Name) {
		n.file = nil
		n.logger.Warn("Rejected receipt file", "filename", f.Name, "content_type", f.ContentType)
		return Selection{Name: f.Name, Accepted: false}
	}

	n.file = &f
	return Selection{Name: f.Name, Accepted: true}
}

// Pending returns the name of the retained receipt, or "" when there is none
func (n *NewBill) Pending() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.file == nil {
		return ""
	}
	return n.file.Name
}

// Submit uploads the retained receipt, then saves the bill built from form
// and navigates to the bills list. On failure the user stays on the form and
// the returned error is a *bill.Failure.
//
// Submit proceeds even when no receipt was selected; the store is left to reject it.
func (n *NewBill) Submit(ctx context.Context, form Form) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	user, err := n.session.User()
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	b := Build(form, user.Email)
	if !bill.KnownCategory(b.Type) {
		n.logger.Warn("Unknown expense type", "type", b.Type)
	}

	file := n.file
	n.file = nil
	if file == nil {
		n.logger.Warn("Submitting bill without a receipt", "email", user.Email)
	}

	created, err := n.store.Bills().Create(ctx, store.Upload{File: file, Email: user.Email})
	if err != nil {
		n.logger.Error("Failed to upload receipt", "email", user.Email, "error", err)
		return bill.NewFailure(bill.OpUpload, err)
	}

	b.ID = created.Key
	b.FileURL = created.FileURL
	b.FileName = created.FileName
	if b.FileName == "" && file != nil {
		b.FileName = file.Name
	}

	if _, err := n.store.Bills().Update(ctx, b); err != nil {
		n.logger.Error("Failed to save bill", "id", b.ID, "error", err)
		return bill.NewFailure(bill.OpPersist, err)
	}

	n.logger.Info("Bill submitted", "id", b.ID, "type", b.Type)
	n.router.Navigate(RouteBills)
	return nil
}

// Build turns raw form values into a pending bill owned by email
func Build(form Form, email string) *bill.Bill {
	return &bill.Bill{
		Email:      email,
		Type:       strings.TrimSpace(form.Type),
		Name:       strings.TrimSpace(form.Name),
		Amount:     bill.ParseAmount(form.Amount),
		Date:       strings.TrimSpace(form.Date),
		VAT:        bill.ParseVAT(form.VAT),
		Pct:        bill.ParsePct(form.Pct),
		Commentary: form.Commentary,
		Status:     bill.StatusPending,
	}
}
