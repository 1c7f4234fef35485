package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when the provided config is not a pointer to a struct
// that embeds EnvConfig.
var ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

// DefaultTagName is the struct tag carrying a field's default value.
const DefaultTagName = "default"

// EnvConfig is a base type that must be embedded in configuration structs
// to enable environment variable parsing.
type EnvConfig struct {
	namespace string
}

// Namespace returns the namespace the config was parsed with.
func (c EnvConfig) Namespace() string {
	return c.namespace
}

//nolint:varnamelen
func getEnvConfig(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)

	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		//nolint:exhaustruct,forcetypeassert
		if field.Anonymous && field.Type == reflect.TypeOf(EnvConfig{}) {
			if ev := v.Field(i); ev.CanAddr() {
				return ev.Addr().Interface().(*EnvConfig), nil
			}
		}
	}

	return nil, ErrInvalidConfig
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored and variables that are already set are never overridden.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, filename := range filenames {
		if _, err := os.Stat(filename); err != nil {
			continue
		}

		if err := godotenv.Load(filename); err != nil {
			return fmt.Errorf("load %s: %w", filename, err)
		}
	}

	return nil
}

// Parse loads configuration values from environment variables into the provided struct.
// The struct must embed EnvConfig and use `env` tags to specify variable names,
// `default` tags for defaults and `envPrefix` tags on nested structs.
//
// Every variable is looked up under each level of the namespace, most specific first:
// with namespace "APP_SVC", LEVEL resolves from APP_SVC_LEVEL, APP_LEVEL, then LEVEL.
// Fields with an `env` tag and no default are required.
func Parse(ctx context.Context, cfg any, namespace string) error {
	envConfig, err := getEnvConfig(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	envConfig.namespace = namespace

	//nolint:exhaustruct
	opts := env.Options{
		Environment:         namespacedEnvironment(os.Environ(), namespace),
		DefaultValueTagName: DefaultTagName,
		RequiredIfNoDef:     true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// namespacedEnvironment flattens environ so that every namespaced variable is also
// visible under its bare name. More specific namespaces take precedence.
func namespacedEnvironment(environ []string, namespace string) map[string]string {
	vars := make(map[string]string, len(environ))

	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}

	if namespace == "" {
		return vars
	}

	resolved := make(map[string]string, len(vars))
	for key, value := range vars {
		resolved[key] = value
	}

	nsParts := strings.Split(namespace, "_")

	// Least specific first so that longer prefixes overwrite shorter ones
	for i := 1; i <= len(nsParts); i++ {
		prefix := strings.Join(nsParts[:i], "_") + "_"

		for key, value := range vars {
			if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
				resolved[name] = value
			}
		}
	}

	return resolved
}
