package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("not found")

var bktAuth = []byte("auth")

const DefaultTokenKey = "token"

// Encryptor seals the serialized record before it reaches the disk.
type Encryptor interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(ciphertext string) (string, error)
}

// Storage is a wrapper around bolt.DB
type Storage struct {
	db        *bolt.DB
	closeFunc func() error
	tokenKey  []byte
	enc       Encryptor
}

type Option func(*Storage)

// WithTokenKey overrides the key the token record is stored under.
func WithTokenKey(key string) Option {
	return func(s *Storage) {
		if key != "" {
			s.tokenKey = []byte(key)
		}
	}
}

// WithEncryptor makes the storage encrypt the token record at rest.
func WithEncryptor(enc Encryptor) Option {
	return func(s *Storage) {
		s.enc = enc
	}
}

// NewStorage creates a new storage
func NewStorage(path string, opts ...Option) (*Storage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt db %s", path)
	}
	s := &Storage{
		db:        db,
		closeFunc: db.Close,
		tokenKey:  []byte(DefaultTokenKey),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func NewTempStorage(opts ...Option) (*Storage, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("xmum-wiki-%s.db", uuid.New().String()))
	storage, err := NewStorage(path, opts...)
	if err != nil {
		return nil, err
	}
	originalCloseFunc := storage.closeFunc
	storage.closeFunc = func() error {
		if err := originalCloseFunc(); err != nil {
			return err
		}
		return os.Remove(path)
	}
	return storage, nil
}

// Close closes the storage
func (s *Storage) Close() error {
	return s.closeFunc()
}

// GetToken returns ErrNotFound when no record is stored.
func (s *Storage) GetToken() (TokenRecord, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktAuth)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(s.tokenKey)
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return TokenRecord{}, err
	}
	return s.unmarshalRecord(raw)
}

func (s *Storage) PutToken(rec TokenRecord) error {
	raw, err := s.marshalRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bktAuth)
		if err != nil {
			return err
		}
		return b.Put(s.tokenKey, raw)
	})
}

// DeleteToken is a no-op when nothing is stored.
func (s *Storage) DeleteToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktAuth)
		if b == nil {
			return nil
		}
		return b.Delete(s.tokenKey)
	})
}

func (s *Storage) marshalRecord(rec TokenRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal token record")
	}
	if s.enc == nil {
		return data, nil
	}
	sealed, err := s.enc.EncryptString(string(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to seal token record")
	}
	return []byte(sealed), nil
}

func (s *Storage) unmarshalRecord(raw []byte) (TokenRecord, error) {
	if s.enc != nil {
		opened, err := s.enc.DecryptString(string(raw))
		if err != nil {
			return TokenRecord{}, &CorruptRecordError{Err: err}
		}
		raw = []byte(opened)
	}
	var rec TokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return TokenRecord{}, &CorruptRecordError{Err: err}
	}
	return rec, nil
}

type CorruptRecordError struct {
	Err error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("token record is unreadable: %v", e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}
