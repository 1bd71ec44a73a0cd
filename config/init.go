package config

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// a missing config file is fine, every value has a default
func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) && path == DefaultConfigFile {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "cannot open config file %s", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "cannot parse config file %s", path)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	err := envconfig.Process("", cfg)
	if err != nil {
		return errors.Wrap(err, "cannot read environment")
	}
	return nil
}

// .env is optional, values already present in the environment win
func readDotEnv() error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "cannot read .env file")
	}
	return nil
}

// Load reads path (config.yml when empty), then the environment on top of it
func Load(path string) (*Configuration, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := &Configuration{}
	if err := readDotEnv(); err != nil {
		return nil, err
	}
	if err := readFile(path, cfg); err != nil {
		return nil, err
	}
	if err := readEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if cfg.Relay.OnFailure != FailureAbort && cfg.Relay.OnFailure != FailureContinue {
		return nil, errors.Newf("relay.on_failure must be %q or %q, got %q", FailureAbort, FailureContinue, cfg.Relay.OnFailure)
	}
	return cfg, nil
}

// Init loads the configuration into the package-level Config
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}
