package config

import (
	"os"
	"reflect"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	ServerHost                string
	ServerPort                int
}

const defaultConfigFile = "/config/config.yaml"

// New loads configuration from an optional YAML file (CONFIG_FILE, falling
// back to /config/config.yaml) with environment variables taking precedence.
// YAML keys are the snake_case form of the struct field names; env vars are
// the same keys uppercased.
func New() (*Config, error) {
	// A .env file is optional; missing is fine.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        3,
		ServerHost:                "0.0.0.0",
		ServerPort:                2024,
	}

	k := koanf.New(".")

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	err := k.Load(env.Provider("", ".", toSnakeCase), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// PORT is the conventional deployment knob; server_port still wins when
	// both are set.
	if k.Exists("port") && !k.Exists("server_port") {
		cfg.ServerPort = k.Int("port")
	}

	if err := applyKeys(k, cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseFilePath == "" {
		return nil, errors.Errorf("missing required config: DATABASE_FILE_PATH (database_file_path)")
	}

	return cfg, nil
}

// NewForTest returns a config pointed at an in-memory database, suitable for
// unit tests that don't want to touch the environment.
func NewForTest() *Config {
	return &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 1,
		DatabaseConnectRetryDelay: 10 * time.Millisecond,
		DatabaseFilePath:          ":memory:",
		DatabaseMaxRetries:        3,
		ServerHost:                "127.0.0.1",
		ServerPort:                0,
	}
}

// applyKeys copies any loaded koanf key onto the matching struct field,
// leaving defaults in place for keys that were never set.
func applyKeys(k *koanf.Koanf, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		key := toSnakeCase(t.Field(i).Name)
		if !k.Exists(key) {
			continue
		}

		field := v.Field(i)
		switch field.Interface().(type) {
		case time.Duration:
			field.Set(reflect.ValueOf(k.Duration(key)))
		case bool:
			field.SetBool(k.Bool(key))
		case int:
			field.SetInt(int64(k.Int(key)))
		case string:
			field.SetString(k.String(key))
		default:
			return errors.Errorf("unsupported config field type for %s", t.Field(i).Name)
		}
	}

	return nil
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
