package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pechorka/xmum-wiki/internal/client"
	"github.com/pechorka/xmum-wiki/internal/notify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	LoginPath  = "/login/email"
	LogoutPath = "/login/logout"
)

type Client interface {
	Send(ctx context.Context, method, path string, body any, header http.Header) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Dispatch(data json.RawMessage, err error, h client.Handlers)
}

type Tokens interface {
	Store(tok string) error
	Take() (string, bool)
	Remove() error
}

type Notifier interface {
	Success(id string, args map[string]string)
	Text(id string, args map[string]string) string
}

// Service moves the session token between absent and valid: Login stores a
// token, Logout revokes it on the server and then drops it locally.
type Service struct {
	client   Client
	tokens   Tokens
	notifier Notifier
	log      logrus.FieldLogger
}

func NewService(c Client, tokens Tokens, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		client:   c,
		tokens:   tokens,
		notifier: notifier,
		log:      log.WithField("component", "session"),
	}
}

type loginRequest struct {
	UserEmail string `json:"userEmail"`
	Code      string `json:"code"`
}

// Login exchanges an emailed code for a token. Nothing is stored unless the
// server accepts the code.
func (s *Service) Login(ctx context.Context, identifier, code string) (string, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	data, err := s.client.Send(ctx, http.MethodPost, LoginPath, loginRequest{
		UserEmail: identifier,
		Code:      code,
	}, header)
	if err != nil {
		return "", err
	}
	var tok string
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", &client.TransportError{URL: LoginPath, Status: http.StatusOK, Err: errors.Wrap(err, "login data is not a token")}
	}
	if tok == "" {
		return "", &client.TransportError{URL: LoginPath, Status: http.StatusOK, Err: errors.New("login returned an empty token")}
	}
	if err := s.tokens.Store(tok); err != nil {
		return "", err
	}
	s.log.WithField("user", identifier).Info("logged in")
	s.notifier.Success(notify.MsgLoginWelcome, map[string]string{"name": identifier})
	return tok, nil
}

// Logout fails with a precondition Failure and sends nothing when there is no
// valid session. The local token is removed before Logout returns success.
func (s *Service) Logout(ctx context.Context) (json.RawMessage, error) {
	if _, ok := s.tokens.Take(); !ok {
		return nil, client.NewPreconditionFailure(s.notifier.Text(notify.MsgNoSession, nil), LogoutPath)
	}
	data, err := s.client.Post(ctx, LogoutPath, struct{}{})
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Remove(); err != nil {
		return nil, errors.Wrap(err, "server logged out but local token remains")
	}
	s.log.Info("logged out")
	return data, nil
}

// LoginWith runs Login and dispatches its result to h. Success receives the
// token as a JSON string.
func (s *Service) LoginWith(ctx context.Context, identifier, code string, h client.Handlers) {
	data, err := s.loginRaw(ctx, identifier, code)
	s.client.Dispatch(data, err, h)
}

// LogoutWith runs Logout and dispatches its result to h. The token is already
// gone when h.Success runs.
func (s *Service) LogoutWith(ctx context.Context, h client.Handlers) {
	data, err := s.Logout(ctx)
	s.client.Dispatch(data, err, h)
}

func (s *Service) LoginAsync(ctx context.Context, identifier, code string, h client.Handlers) <-chan struct{} {
	return client.Go(func() (json.RawMessage, error) {
		return s.loginRaw(ctx, identifier, code)
	}, s.client.Dispatch, h)
}

func (s *Service) LogoutAsync(ctx context.Context, h client.Handlers) <-chan struct{} {
	return client.Go(func() (json.RawMessage, error) {
		return s.Logout(ctx)
	}, s.client.Dispatch, h)
}

func (s *Service) loginRaw(ctx context.Context, identifier, code string) (json.RawMessage, error) {
	tok, err := s.Login(ctx, identifier, code)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tok)
}
