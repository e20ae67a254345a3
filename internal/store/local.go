package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/ergydev/billed/internal/bill"
)

const billsBucket = "bills"

// KeyGenerator generates bill keys
type KeyGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Local is a Store kept in BoltDB with receipts on disk.
// Failures are reported as StatusError so callers see the same contract as the remote API.
type Local struct {
	db          *bbolt.DB
	files       Files
	fileBaseURL string
	keys        KeyGenerator
}

// NewLocal creates a Local store on an open database
func NewLocal(db *bbolt.DB, files Files, fileBaseURL string) (*Local, error) {
	return NewLocalWithKeys(db, files, fileBaseURL, uuidGenerator{})
}

// NewLocalWithKeys creates a Local store with a custom key generator for testing
func NewLocalWithKeys(db *bbolt.DB, files Files, fileBaseURL string, keys KeyGenerator) (*Local, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(billsBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Local{
		db:          db,
		files:       files,
		fileBaseURL: strings.TrimRight(fileBaseURL, "/"),
		keys:        keys,
	}, nil
}

// Bills returns the bills API
func (l *Local) Bills() BillsAPI {
	return l
}

// List returns all stored bills in key order
func (l *Local) List(ctx context.Context) ([]bill.Bill, error) {
	bills := make([]bill.Bill, 0)
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(billsBucket)).ForEach(func(k, v []byte) error {
			bills = append(bills, decodeBill(string(k), v))
			return nil
		})
	})
	if err != nil {
		return nil, internalError(err)
	}
	return bills, nil
}

// Create saves the receipt and reserves a pending bill under a new key
func (l *Local) Create(ctx context.Context, up Upload) (*Created, error) {
	if up.File == nil {
		return nil, &StatusError{Code: http.StatusBadRequest, Body: "no file provided"}
	}

	key := l.keys.Generate()
	stored, err := l.files.Save(key+"_"+sanitizeFilename(up.File.Name), up.File.Data)
	if err != nil {
		return nil, internalError(fmt.Errorf("saving file: %w", err))
	}

	created := &Created{
		FileURL:  l.fileBaseURL + "/" + stored,
		FileName: up.File.Name,
		Key:      key,
	}
	b := &bill.Bill{
		ID:       key,
		Email:    up.Email,
		FileURL:  created.FileURL,
		FileName: created.FileName,
		Status:   bill.StatusPending,
	}
	if err := l.put(b); err != nil {
		if delErr := l.files.Delete(stored); delErr != nil {
			slog.Warn("Failed to delete file", "filename", stored, "error", delErr)
		}
		return nil, internalError(fmt.Errorf("saving bill: %w", err))
	}
	return created, nil
}

// Update replaces the bill stored under b.ID
func (l *Local) Update(ctx context.Context, b *bill.Bill) (*bill.Bill, error) {
	notFound := &StatusError{Code: http.StatusNotFound, Body: "bill not found: " + b.ID}
	if b.ID == "" {
		return nil, notFound
	}

	err := l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(billsBucket))
		if bucket.Get([]byte(b.ID)) == nil {
			return notFound
		}
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshaling bill: %w", err)
		}
		return bucket.Put([]byte(b.ID), data)
	})
	if errors.Is(err, notFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("saving bill: %w", err))
	}
	updated := *b
	return &updated, nil
}

// File returns a stored receipt by the name used in its fileUrl
func (l *Local) File(name string) ([]byte, error) {
	data, err := l.files.Get(name)
	if err != nil {
		return nil, &StatusError{Code: http.StatusNotFound, Body: "file not found"}
	}
	return data, nil
}

func (l *Local) put(b *bill.Bill) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshaling bill: %w", err)
		}
		return tx.Bucket([]byte(billsBucket)).Put([]byte(b.ID), data)
	})
}

func internalError(err error) error {
	return &StatusError{Code: http.StatusInternalServerError, Body: err.Error()}
}
