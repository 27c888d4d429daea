package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/google/uuid"
	"github.com/pechorka/xmum-wiki/internal/notify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

const RequestIDHeader = "X-Request-Id"

// TokenSource yields the current session token, if any.
type TokenSource interface {
	Take() (string, bool)
}

type Notifier interface {
	Warning(id string, args map[string]string)
	WarningText(text string)
}

// Client talks to the wiki backend. Every response is an Envelope and callers
// only ever get its data or an error from this file's error types.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	notifier   Notifier
	log        logrus.FieldLogger
}

// Options allows overriding the client's collaborators.
type Options struct {
	HTTPClient *http.Client
	Notifier   Notifier
	Logger     logrus.FieldLogger
}

func New(baseURL string, tokens TokenSource, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse baseURL")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Calls are bounded by the caller's context only.
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Wrap(err, "create cookie jar")
		}
		httpClient = &http.Client{Jar: jar}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL:    parsed,
		httpClient: httpClient,
		tokens:     tokens,
		notifier:   opts.Notifier,
		log:        log.WithField("component", "client"),
	}, nil
}

// AccessHeader returns the bearer header for the current token, or an empty
// header when there is no valid session.
func (c *Client) AccessHeader() http.Header {
	h := http.Header{}
	if tok, ok := c.tokens.Take(); ok {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

// Get fetches path with the session token, if there is one.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Send(ctx, http.MethodGet, path, nil, c.AccessHeader())
}

// Post sends body as JSON with the session token, if there is one.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Send(ctx, http.MethodPost, path, body, c.AccessHeader())
}

// Send performs one call with exactly the given headers. A nil body sends no
// payload. The returned error is a *Failure or a *TransportError.
func (c *Client) Send(ctx context.Context, method, path string, body any, header http.Header) (json.RawMessage, error) {
	requestID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"url":        path,
		"request_id": requestID,
	})

	req, err := c.newRequest(ctx, method, path, body, header)
	if err != nil {
		return nil, &TransportError{URL: path, Err: err}
	}
	req.Header.Set(RequestIDHeader, requestID)

	log.Debug("sending request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: path, Status: resp.StatusCode, Err: errors.Wrap(err, "reading body")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: path, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, &TransportError{URL: path, Status: resp.StatusCode, Err: err}
	}
	if *env.Code != 0 {
		log.WithField("code", *env.Code).Debug("request rejected")
		return nil, &Failure{
			Kind:    KindApplication,
			Message: env.Message,
			Code:    *env.Code,
			URL:     path,
		}
	}
	log.Debug("request succeeded")
	return env.Data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, header http.Header) (*http.Request, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}
	full := c.resolve(rel)

	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
		reader = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, full.String(), reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolve appends absolute paths to the base path, so a base of
// http://host/api turns /login/email into http://host/api/login/email.
func (c *Client) resolve(rel *url.URL) *url.URL {
	if rel.IsAbs() {
		return rel
	}
	full := *c.baseURL
	basePath := full.Path
	if len(basePath) > 0 && basePath[len(basePath)-1] == '/' {
		basePath = basePath[:len(basePath)-1]
	}
	if len(rel.Path) > 0 && rel.Path[0] == '/' {
		full.Path = basePath + rel.Path
	} else {
		full.Path = basePath + "/" + rel.Path
	}
	full.RawPath = ""
	full.RawQuery = rel.RawQuery
	full.Fragment = ""
	return &full
}

// DefaultFailure logs the failure and shows the server's message.
func (c *Client) DefaultFailure(message string, code int, url string) {
	c.log.WithFields(logrus.Fields{
		"url":  url,
		"code": code,
	}).Warnf("request failed: %s", message)
	if c.notifier != nil {
		c.notifier.WarningText(message)
	}
}

// DefaultError logs err and asks the user to contact the administrator.
func (c *Client) DefaultError(err error) {
	c.log.WithError(err).Warn("request errored")
	if c.notifier != nil {
		c.notifier.Warning(notify.MsgContactAdmin, nil)
	}
}
