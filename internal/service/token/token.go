package token

import (
	"time"

	"github.com/pechorka/xmum-wiki/internal/notify"
	"github.com/pechorka/xmum-wiki/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Storage interface {
	GetToken() (storage.TokenRecord, error)
	PutToken(rec storage.TokenRecord) error
	DeleteToken() error
}

type Notifier interface {
	Warning(id string, args map[string]string)
}

// Store keeps the session token and its expiry. Expiry is checked lazily on
// every Take, there is no timer.
type Store struct {
	store    Storage
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(store Storage, notifier Notifier, log logrus.FieldLogger, opts ...Option) *Store {
	s := &Store{
		store:    store,
		notifier: notifier,
		log:      log.WithField("component", "token"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store persists tok together with the expiry found in its claims.
// A token whose claims can't be read still gets stored with the default
// lifetime, see ExpireAt.
func (s *Store) Store(tok string) error {
	rec := storage.TokenRecord{
		Token:  tok,
		Expire: ExpireAt(tok, s.now()),
	}
	if err := s.store.PutToken(rec); err != nil {
		return errors.Wrap(err, "saving token")
	}
	return nil
}

// Take returns the stored token if it has not expired yet. An expired record
// is deleted and the user is told to log in again.
func (s *Store) Take() (string, bool) {
	rec, err := s.store.GetToken()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false
		}
		var corrupt *storage.CorruptRecordError
		if errors.As(err, &corrupt) {
			s.log.WithError(err).Warn("dropping unreadable token record")
			s.remove()
			return "", false
		}
		s.log.WithError(err).Error("failed to read token record")
		return "", false
	}
	if rec.Expire <= s.now().UnixMilli() {
		s.remove()
		s.notifier.Warning(notify.MsgSessionExpired, nil)
		return "", false
	}
	return rec.Token, true
}

func (s *Store) Remove() error {
	if err := s.store.DeleteToken(); err != nil {
		return errors.Wrap(err, "deleting token")
	}
	return nil
}

func (s *Store) IsUnauthenticated() bool {
	_, ok := s.Take()
	return !ok
}

func (s *Store) remove() {
	if err := s.Remove(); err != nil {
		s.log.WithError(err).Error("failed to delete token record")
	}
}
