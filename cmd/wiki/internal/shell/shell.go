// Package shell turns command lines into calls on the application context. It
// stands in for the views of the browser front end.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pechorka/xmum-wiki/internal/client"
	"github.com/pechorka/xmum-wiki/internal/uistate"
	"github.com/pkg/errors"
)

var ErrUsage = errors.New("usage")

// App is the surface of internal/app the shell relies on.
type App interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Login(ctx context.Context, identifier, code string) (string, error)
	Logout(ctx context.Context) (json.RawMessage, error)
	IsUnauthenticated() bool
	TakeAccessToken() (string, bool)
	AccessHeader() http.Header
	Dispatch(data json.RawMessage, err error, h client.Handlers)
	UI() *uistate.Store
}

type Shell struct {
	app App
	out io.Writer
}

func New(app App, out io.Writer) *Shell {
	return &Shell{app: app, out: out}
}

const help = `commands:
  login <email> <code>   exchange an emailed code for a session
  logout                 end the session
  status                 show whether a session is active
  token                  print the session token
  header                 print the authorization header
  get <path>             GET path and print its data
  post <path> [json]     POST json (default {}) to path and print its data
  open <page>            set the current page and GET /docs/<page>
  sidebar                toggle the sidebar flag
  state                  print the UI state
  help                   show this text`

// Exec runs one command. A call that did not succeed has already been shown
// to the user through the default handlers; the returned error only carries
// the outcome.
func (s *Shell) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errors.Wrap(ErrUsage, "login <email> <code>")
		}
		_, err := s.app.Login(ctx, args[0], args[1])
		return s.dispatch(nil, err, func(json.RawMessage) {})
	case "logout":
		data, err := s.app.Logout(ctx)
		return s.dispatch(data, err, func(json.RawMessage) {
			fmt.Fprintln(s.out, "logged out")
		})
	case "status":
		if s.app.IsUnauthenticated() {
			fmt.Fprintln(s.out, "unauthenticated")
		} else {
			fmt.Fprintln(s.out, "authenticated")
		}
		return nil
	case "token":
		tok, ok := s.app.TakeAccessToken()
		if !ok {
			return errors.New("no valid session")
		}
		fmt.Fprintln(s.out, tok)
		return nil
	case "header":
		return s.app.AccessHeader().Write(s.out)
	case "get":
		if len(args) != 1 {
			return errors.Wrap(ErrUsage, "get <path>")
		}
		data, err := s.app.Get(ctx, args[0])
		return s.dispatch(data, err, s.printData)
	case "post":
		if len(args) < 1 || len(args) > 2 {
			return errors.Wrap(ErrUsage, "post <path> [json]")
		}
		body := json.RawMessage(`{}`)
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return errors.Errorf("body is not valid json: %s", args[1])
			}
			body = json.RawMessage(args[1])
		}
		data, err := s.app.Post(ctx, args[0], body)
		return s.dispatch(data, err, s.printData)
	case "open":
		if len(args) != 1 {
			return errors.Wrap(ErrUsage, "open <page>")
		}
		page := strings.TrimPrefix(args[0], "/")
		s.app.UI().SetCurrentPage(page)
		data, err := s.app.Get(ctx, "/docs/"+page)
		return s.dispatch(data, err, s.printData)
	case "sidebar":
		s.app.UI().ToggleSidebar()
		return s.printState()
	case "state":
		return s.printState()
	case "help":
		fmt.Fprintln(s.out, help)
		return nil
	default:
		return errors.Wrapf(ErrUsage, "unknown command %q", cmd)
	}
}

// Shown reports whether err came from a call and was already presented to the
// user by the dispatch handlers.
func Shown(err error) bool {
	var se *shownError
	return errors.As(err, &se)
}

// shownError marks an error the dispatch handlers have already reported.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }

func (e *shownError) Unwrap() error { return e.err }

// Run reads commands line by line until in is exhausted, "quit" is entered or
// ctx is done. Failed commands don't stop the loop.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "quit", "exit":
			return nil
		default:
			if err := s.Exec(ctx, splitArgs(line)); err != nil && !Shown(err) {
				fmt.Fprintln(s.out, err)
			}
		}
		fmt.Fprint(s.out, "> ")
	}
	return scanner.Err()
}

func (s *Shell) dispatch(data json.RawMessage, err error, onSuccess func(json.RawMessage)) error {
	s.app.Dispatch(data, err, client.Handlers{Success: onSuccess})
	if err != nil {
		return &shownError{err: err}
	}
	return nil
}

func (s *Shell) printData(data json.RawMessage) {
	if len(data) == 0 {
		fmt.Fprintln(s.out, "null")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Fprintln(s.out, string(data))
		return
	}
	fmt.Fprintln(s.out, buf.String())
}

func (s *Shell) printState() error {
	data, err := json.Marshal(s.app.UI().State())
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

// splitArgs splits on whitespace but keeps a trailing JSON argument whole, so
// `post /x {"a": 1}` has three arguments.
func splitArgs(line string) []string {
	if i := strings.IndexAny(line, "{["); i > 0 {
		head := strings.Fields(line[:i])
		return append(head, strings.TrimSpace(line[i:]))
	}
	return strings.Fields(line)
}
