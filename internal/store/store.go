package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ergydev/billed/internal/bill"
)

// Store is the backing API the flows talk to
type Store interface {
	Bills() BillsAPI
}

// BillsAPI defines the bill operations of a Store
type BillsAPI interface {
	// List returns every bill visible to the connected user
	List(ctx context.Context) ([]bill.Bill, error)

	// Create uploads the receipt and reserves a bill key
	Create(ctx context.Context, up Upload) (*Created, error)

	// Update saves a full bill under its ID
	Update(ctx context.Context, b *bill.Bill) (*bill.Bill, error)
}

// File is a receipt chosen by the user
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Upload is the multipart payload of Create. File may be nil.
type Upload struct {
	File  *File
	Email string
}

// Created is the result of Create
type Created struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	Key      string `json:"key"`
}

// StatusError is a store rejection. Its message embeds the status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("Erreur %d", e.Code)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// decodeBill decodes one listed record. A record that is not a bill at all is
// kept as an empty bill under key so a listing never loses an entry.
func decodeBill(key string, raw []byte) bill.Bill {
	var b bill.Bill
	if err := json.Unmarshal(raw, &b); err != nil {
		slog.Warn("Malformed bill record", "key", key, "error", err)
		return bill.Bill{ID: key}
	}
	return b
}
