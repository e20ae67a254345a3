package flow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/ergydev/billed/internal/bill"
	"github.com/ergydev/billed/internal/store"
)

// ErrBillNotFound is returned by Receipt for an id absent from the listing
var ErrBillNotFound = errors.New("bill not found")

// Entry is a listed bill ready for display
type Entry struct {
	Bill bill.Bill `json:"bill"`
	// Date is the formatted date, or the raw value when it could not be parsed
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Receipt is what the receipt preview shows
type Receipt struct {
	URL      string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

// Bills drives the employee's bills page
type Bills struct {
	store  store.Store
	router Router
	logger *slog.Logger
}

// NewBills creates a listing flow
func NewBills(st store.Store, router Router, logger *slog.Logger) *Bills {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bills{store: st, router: router, logger: logger}
}

// Fetch lists the bills newest first. Records with a malformed date are kept,
// showing their raw date, after every dated record. A store rejection is
// returned as a *bill.Failure.
func (b *Bills) Fetch(ctx context.Context) ([]Entry, error) {
	raw, err := b.store.Bills().List(ctx)
	if err != nil {
		b.logger.Error("Failed to list bills", "error", err)
		return nil, bill.NewFailure(bill.OpFetch, err)
	}

	type dated struct {
		entry Entry
		at    time.Time
		ok    bool
	}
	rows := make([]dated, 0, len(raw))
	for _, r := range raw {
		e := Entry{Bill: r, Date: r.Date, Status: r.Status.Label()}
		at, ok := bill.ParseDate(r.Date)
		if ok {
			e.Date = bill.FormatDate(at)
		} else {
			b.logger.Warn("Keeping bill with unparsable date", "id", r.ID, "date", r.Date)
		}
		rows = append(rows, dated{entry: e, at: at, ok: ok})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ok != rows[j].ok {
			return rows[i].ok
		}
		return rows[i].at.After(rows[j].at)
	})

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry
	}
	return entries, nil
}

// NewBill opens the new bill form
func (b *Bills) NewBill() {
	b.router.Navigate(RouteNewBill)
}

// Receipt finds the receipt of the listed bill with the given id
func (b *Bills) Receipt(ctx context.Context, id string) (*Receipt, error) {
	entries, err := b.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Bill.ID == id {
			return &Receipt{URL: e.Bill.FileURL, FileName: e.Bill.FileName}, nil
		}
	}
	return nil, ErrBillNotFound
}
