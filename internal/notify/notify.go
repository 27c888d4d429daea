// Package notify shows short user-facing notices, the console counterpart of
// toast messages in a browser.
package notify

import (
	_ "embed"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pechorka/xmum-wiki/pkg/i18n"
	"github.com/sirupsen/logrus"
)

// Message ids of the built-in catalogue.
const (
	MsgSessionExpired = "session_expired"
	MsgLoginWelcome   = "login_welcome"
	MsgContactAdmin   = "contact_admin"
	MsgNoSession      = "no_session"
)

const fallbackLang = "en"

//go:embed locales.json
var defaultCatalogue []byte

type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

type Sink interface {
	Show(level Level, text string)
}

type Translator interface {
	Get(lang, id string) (string, error)
	GetWithArgs(lang, id string, args map[string]string) (string, error)
}

type Notifier struct {
	sink Sink
	tr   Translator
	lang string
	log  logrus.FieldLogger
}

func New(sink Sink, tr Translator, lang string, log logrus.FieldLogger) *Notifier {
	return &Notifier{
		sink: sink,
		tr:   tr,
		lang: lang,
		log:  log.WithField("component", "notify"),
	}
}

// NewDefaultTranslator returns a catalogue preloaded with the embedded messages.
func NewDefaultTranslator() (*i18n.Localies, error) {
	l := i18n.New()
	if err := l.LoadBytes(defaultCatalogue); err != nil {
		return nil, err
	}
	return l, nil
}

func (n *Notifier) Success(id string, args map[string]string) {
	n.sink.Show(LevelSuccess, n.Text(id, args))
}

func (n *Notifier) Warning(id string, args map[string]string) {
	n.sink.Show(LevelWarning, n.Text(id, args))
}

// WarningText shows text as is. Used for messages that come from the server.
func (n *Notifier) WarningText(text string) {
	n.sink.Show(LevelWarning, text)
}

// Text resolves id in the configured language, then in English, then gives up
// and returns the id itself.
func (n *Notifier) Text(id string, args map[string]string) string {
	for _, lang := range []string{n.lang, fallbackLang} {
		text, err := n.translate(lang, id, args)
		if err == nil {
			return text
		}
		if err != i18n.ErrNotFound {
			n.log.WithError(err).WithField("id", id).Warn("failed to render notice")
		}
	}
	return id
}

func (n *Notifier) translate(lang, id string, args map[string]string) (string, error) {
	if len(args) == 0 {
		return n.tr.Get(lang, id)
	}
	return n.tr.GetWithArgs(lang, id, args)
}

// ConsoleSink prints notices to a terminal, coloured by level.
type ConsoleSink struct {
	out     io.Writer
	success *color.Color
	warning *color.Color
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{
		out:     out,
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
	}
}

func (s *ConsoleSink) Show(level Level, text string) {
	c := s.warning
	if level == LevelSuccess {
		c = s.success
	}
	c.Fprintln(s.out, text)
}
