// Package config loads the tendril configuration from a YAML file and
// TENDRIL_* environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TENDRIL_STORE_REDIS_ADDR.
const EnvPrefix = "TENDRIL_"

// Config is the full application configuration.
type Config struct {
	LogLevel  string         `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string         `mapstructure:"log_format" validate:"oneof=text json"`
	Store     StoreConfig    `mapstructure:"store"`
	HTTP      HTTPConfig     `mapstructure:"http"`
	Limits    LimitsConfig   `mapstructure:"limits"`
	Security  SecurityConfig `mapstructure:"security"`
	// Catalogs are YAML record type catalogs loaded at startup.
	Catalogs []string `mapstructure:"catalogs" validate:"dive,required"`
}

// StoreConfig selects and configures the transcript store.
type StoreConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=memory file redis"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the redis store and distributed locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LimitsConfig bounds the recursive passes of the engine. Zero keeps the
// engine default.
type LimitsConfig struct {
	MaxTransformDepth int `mapstructure:"max_transform_depth" validate:"gte=0"`
	MaxResultChain    int `mapstructure:"max_result_chain" validate:"gte=0"`
	MaxEvalDepth      int `mapstructure:"max_eval_depth" validate:"gte=0"`
}

// SecurityConfig configures transcript encryption and label masking.
type SecurityConfig struct {
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key" validate:"omitempty,base64"`
	MaskLabels    []string `mapstructure:"mask_labels"`
}

// Key decodes the encryption key, nil when encryption is disabled.
func (s SecurityConfig) Key() []byte {
	if s.EncryptionKey == "" {
		return nil
	}
	key, _ := base64.StdEncoding.DecodeString(s.EncryptionKey)
	return key
}

func defaults() map[string]any {
	return map[string]any{
		"log_level":  "info",
		"log_format": "text",
		"store": map[string]any{
			"backend": "memory",
			"path":    ".tendril/dialogues",
			"redis": map[string]any{
				"addr":     "localhost:6379",
				"password": "",
				"db":       0,
				"prefix":   "tendril:dialogue:",
				"ttl":      "0s",
				"lock_ttl": "30s",
			},
		},
		"http": map[string]any{
			"addr":             ":8080",
			"shutdown_timeout": "5s",
		},
		"limits": map[string]any{
			"max_transform_depth": 0,
			"max_result_chain":    0,
			"max_eval_depth":      0,
		},
		"catalogs": []any{},
		"security": map[string]any{
			"encryption_key": "",
			"mask_labels":    []any{},
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(StoreConfig)
		switch {
		case s.Backend == "redis" && s.Redis.Addr == "":
			sl.ReportError(s.Redis.Addr, "Redis.Addr", "addr", "required_for_redis", "")
		case s.Backend == "file" && s.Path == "":
			sl.ReportError(s.Path, "Path", "path", "required_for_file", "")
		}
	}, StoreConfig{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(SecurityConfig)
		if key := s.Key(); key != nil && len(key) != 32 {
			sl.ReportError(s.EncryptionKey, "EncryptionKey", "encryption_key", "aes256", "")
		}
	}, SecurityConfig{})
	return v
}

// Load reads path (optional) and the environment into a validated Config.
// Precedence: environment over file over defaults.
func Load(path string) (*Config, error) {
	return LoadFrom(path, os.Environ())
}

// LoadFrom is Load with an explicit environment (KEY=VALUE entries).
func LoadFrom(path string, environ []string) (*Config, error) {
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if err := merge(raw, file, ""); err != nil {
			return nil, err
		}
	}

	applyEnv(raw, envMap(environ), EnvPrefix)

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if path != "" {
		// Catalogs declared in a file are relative to it.
		for i, c := range cfg.Catalogs {
			if !filepath.IsAbs(c) {
				cfg.Catalogs[i] = filepath.Join(filepath.Dir(path), c)
			}
		}
	}
	return &cfg, nil
}

// merge copies src into dst, recursing into nested sections. Unknown keys
// are kept so the decoder can report them.
func merge(dst, src map[string]any, path string) error {
	for k, v := range src {
		sub, isMap := v.(map[string]any)
		cur, exists := dst[k]
		curMap, curIsMap := cur.(map[string]any)
		switch {
		case exists && curIsMap && isMap:
			if err := merge(curMap, sub, path+k+"."); err != nil {
				return err
			}
		case exists && curIsMap:
			return fmt.Errorf("config key %s%s must be a section", path, k)
		default:
			dst[k] = v
		}
	}
	return nil
}

// applyEnv overrides every known leaf key with PREFIX_SECTION_KEY.
func applyEnv(raw map[string]any, env map[string]string, prefix string) {
	for k, v := range raw {
		name := prefix + strings.ToUpper(k)
		if sub, ok := v.(map[string]any); ok {
			applyEnv(sub, env, name+"_")
			continue
		}
		if val, ok := env[name]; ok {
			raw[k] = val
		}
	}
}

func envMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			out[k] = v
		}
	}
	return out
}

// ValidationErrors extracts field errors, for friendlier CLI output.
func ValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return out
}
