package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kart-io/doorbell/pkg/errors"
)

// Load reads the config file at path, merges its credentials file over it,
// applies opts and validates the result.
//
// The format is chosen by extension: .yaml/.yml or .toml. Environment
// variables in the form ${VAR} or ${VAR:-default} are expanded in string
// values once both files are decoded, so comments are never expanded and a
// value may hold any characters.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.CredentialsFile != "" {
		credPath, err := expandEnvVars(cfg.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigInvalid, "credentials_file")
		}
		if !filepath.IsAbs(credPath) && path != "" {
			credPath = filepath.Join(filepath.Dir(path), credPath)
		}
		if err := decodeFile(credPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := ExpandEnv(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to expand environment variables")
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigInvalid, "failed to read config file %s", path)
	}
	if err := Decode(data, filepath.Ext(path), cfg); err != nil {
		return errors.Wrapf(err, errors.ErrConfigInvalid, "failed to parse %s", path)
	}
	return nil
}

// Decode decodes data over cfg. Keys absent from data leave cfg untouched.
// ${VAR} references are kept verbatim; ExpandEnv resolves them.
func Decode(data []byte, ext string, cfg *Config) error {
	text := string(data)

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(strings.NewReader(text))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case "toml":
		md, err := toml.Decode(text, cfg)
		if err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown TOML keys: %v", undecoded)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// ExpandEnv replaces ${VAR} and ${VAR:-default} in every string field, slice
// element and map value of cfg.
func ExpandEnv(cfg *Config) error {
	return expandValue(reflect.ValueOf(cfg).Elem())
}

func expandValue(v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		out, err := expandEnvVars(v.String())
		if err != nil {
			return err
		}
		v.SetString(out)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if f := v.Field(i); f.CanSet() {
				if err := expandValue(f); err != nil {
					return err
				}
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := expandValue(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		if v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		for _, k := range v.MapKeys() {
			out, err := expandEnvVars(v.MapIndex(k).String())
			if err != nil {
				return err
			}
			v.SetMapIndex(k, reflect.ValueOf(out).Convert(v.Type().Elem()))
		}
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}

		name := sub[1]
		hasDefault := len(sub) > 2 && sub[2] != ""
		def := ""
		if hasDefault && len(sub) > 3 {
			def = sub[3]
		}

		value, ok := os.LookupEnv(name)
		if !ok {
			if hasDefault {
				return def
			}
			firstErr = fmt.Errorf("environment variable %q is not set", name)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
