package bootstrap

import (
	"io"

	"github.com/pechorka/xmum-wiki/internal/config"
	"github.com/pechorka/xmum-wiki/internal/notify"
	"github.com/pechorka/xmum-wiki/internal/storage"
	"github.com/pechorka/xmum-wiki/pkg/encryptor"
	"github.com/pechorka/xmum-wiki/pkg/i18n"
	"github.com/pechorka/xmum-wiki/pkg/watcher"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

func Logger(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

func Storage(cfg config.StorageConfig) (*storage.Storage, error) {
	opts := []storage.Option{storage.WithTokenKey(cfg.Key)}
	if cfg.Secret != "" {
		opts = append(opts, storage.WithEncryptor(encryptor.NewEncryptor(cfg.Secret)))
	}
	s, err := storage.NewStorage(cfg.Path, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open token storage")
	}
	return s, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Translator loads the message catalogue. With a configured path the file is
// watched and reloaded; close the returned closer to stop watching.
// A language missing from the catalogue is logged, notices then fall back to
// English.
func Translator(cfg config.LocaleConfig, log logrus.FieldLogger) (*i18n.Localies, io.Closer, error) {
	var (
		l      *i18n.Localies
		closer io.Closer = nopCloser{}
	)
	if cfg.Path == "" {
		var err error
		l, err = notify.NewDefaultTranslator()
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to load embedded catalogue")
		}
	} else {
		l = i18n.New()
		w, err := watcher.LoadAndWatch(cfg.Path, l, log)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to load catalogue %s", cfg.Path)
		}
		closer = w
	}
	if langs := l.Languages(); !slices.Contains(langs, cfg.Lang) {
		log.WithFields(logrus.Fields{
			"lang":      cfg.Lang,
			"available": langs,
		}).Warn("language is not in the catalogue")
	}
	return l, closer, nil
}
