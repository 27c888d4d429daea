package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

const DefaultPath = "./wiki.yaml"

type (
	Config struct {
		API       APIConfig       `yaml:"api"`
		Storage   StorageConfig   `yaml:"storage"`
		Locale    LocaleConfig    `yaml:"locale"`
		Log       LogConfig       `yaml:"log"`
		DevServer DevServerConfig `yaml:"dev_server"`
	}

	APIConfig struct {
		BaseURL string `yaml:"base_url" env:"WIKI_API_URL" env-default:"http://localhost:8080"`
	}

	StorageConfig struct {
		Path string `yaml:"path" env:"WIKI_DB_PATH" env-default:"./wiki.db"`
		Key  string `yaml:"key" env:"WIKI_DB_KEY" env-default:"token"`
		// Secret enables encryption of the token record when set.
		Secret string `yaml:"secret" env:"WIKI_STORAGE_SECRET"`
	}

	LocaleConfig struct {
		Lang string `yaml:"lang" env:"WIKI_LANG" env-default:"zh"`
		// Path of a JSON catalogue replacing the embedded one. It is reloaded
		// when the file changes.
		Path string `yaml:"path" env:"WIKI_LOCALE_PATH"`
	}

	LogConfig struct {
		Level string `yaml:"level" env:"WIKI_LOG_LEVEL" env-default:"info"`
	}

	DevServerConfig struct {
		Addr      string `yaml:"addr" env:"WIKI_DEV_ADDR" env-default:":5173"`
		Base      string `yaml:"base" env:"WIKI_DEV_BASE" env-default:"/SurviveXMUM/"`
		StaticDir string `yaml:"static_dir" env:"WIKI_DEV_STATIC_DIR" env-default:"./dist"`
		APIPrefix string `yaml:"api_prefix" env:"WIKI_DEV_API_PREFIX" env-default:"/api"`
		Target    string `yaml:"target" env:"WIKI_DEV_TARGET" env-default:"http://localhost:8080"`
	}
)

// Read loads path and applies environment overrides. A missing file is not an
// error, the configuration then comes from the environment and defaults.
func Read(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "stat config %s", path)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "reading env")
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return cfg, nil
}
