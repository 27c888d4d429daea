package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/valyala/fasttemplate"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrNotFound = errors.New("not found")

type translation struct {
	template *fasttemplate.Template
	text     string
}

func (t *translation) UnmarshalJSON(data []byte) error {
	var text string
	err := json.Unmarshal(data, &text)
	if err != nil {
		return err
	}
	t.text = text
	t.template, err = fasttemplate.NewTemplate(text, "{{", "}}")
	return err
}

// Localies holds message catalogues keyed by language code.
type Localies struct {
	mu  *sync.RWMutex
	cms map[string]map[string]*translation // map[language_code]map[message_id]message
}

func New() *Localies {
	return &Localies{
		mu: &sync.RWMutex{},
	}
}

// Load replaces the catalogues with the contents of the JSON file at path.
func (l *Localies) Load(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	return l.decode(f)
}

// LoadBytes is Load for catalogues that are already in memory, e.g. embedded ones.
func (l *Localies) LoadBytes(data []byte) error {
	var translations map[string]map[string]*translation
	if err := json.Unmarshal(data, &translations); err != nil {
		return err
	}
	l.set(translations)
	return nil
}

func (l *Localies) decode(r io.Reader) error {
	var translations map[string]map[string]*translation
	if err := json.NewDecoder(r).Decode(&translations); err != nil {
		return err
	}
	l.set(translations)
	return nil
}

func (l *Localies) set(translations map[string]map[string]*translation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cms = translations
}

// Languages lists the loaded language codes in sorted order.
func (l *Localies) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	langs := maps.Keys(l.cms)
	slices.Sort(langs)
	return langs
}

func (l *Localies) Get(lang, id string) (string, error) {
	translation, ok := l.get(lang, id)
	if !ok {
		return "", ErrNotFound
	}
	return translation.text, nil
}

func (l *Localies) GetWithArgs(lang, id string, args map[string]string) (string, error) {
	translation, ok := l.get(lang, id)
	if !ok {
		return "", ErrNotFound
	}
	return translation.template.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		value, ok := args[tag]
		if !ok {
			return 0, fmt.Errorf("missing argument %s", tag)
		}
		return w.Write([]byte(value))
	})
}

func (l *Localies) get(lang, id string) (*translation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langMap, ok := l.cms[lang]
	if !ok {
		return nil, false
	}
	translation, ok := langMap[id]
	return translation, ok
}
