package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// UserKey is the storage key holding the connected user
const UserKey = "user"

const bucketName = "localStorage"

// User types
const (
	TypeEmployee = "Employee"
	TypeAdmin    = "Admin"
)

// ErrNoUser is returned when nobody is connected
var ErrNoUser = errors.New("no connected user")

// User is the connected account as stored under UserKey
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Session gives read-only access to the connected user
type Session interface {
	User() (*User, error)
}

// Static is a fixed Session
type Static User

// User returns the fixed user
func (s Static) User() (*User, error) {
	u := User(s)
	return &u, nil
}

// LocalStorage is a string key/value store persisted in BoltDB
type LocalStorage struct {
	db *bbolt.DB
}

// OpenLocalStorage opens (or creates) the storage file at path
func OpenLocalStorage(path string) (*LocalStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}
	ls, err := NewLocalStorage(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return ls, nil
}

// NewLocalStorage uses an already open database
func NewLocalStorage(db *bbolt.DB) (*LocalStorage, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &LocalStorage{db: db}, nil
}

// GetItem returns the value for key, or ok=false if unset
func (l *LocalStorage) GetItem(key string) (value string, ok bool, err error) {
	err = l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data != nil {
			value, ok = string(data), true
		}
		return nil
	})
	return value, ok, err
}

// SetItem stores value under key
func (l *LocalStorage) SetItem(key, value string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte(value))
	})
}

// SetUser encodes u under UserKey
func (l *LocalStorage) SetUser(u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}
	return l.SetItem(UserKey, string(data))
}

// User decodes the entry under UserKey
func (l *LocalStorage) User() (*User, error) {
	raw, ok, err := l.GetItem(UserKey)
	if err != nil {
		return nil, fmt.Errorf("reading user: %w", err)
	}
	if !ok {
		return nil, ErrNoUser
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("unmarshaling user: %w", err)
	}
	return &u, nil
}

// DB returns the underlying database so other stores can share the file
func (l *LocalStorage) DB() *bbolt.DB {
	return l.db
}

// Close closes the underlying database
func (l *LocalStorage) Close() error {
	return l.db.Close()
}
