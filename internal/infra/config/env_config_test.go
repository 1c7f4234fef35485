package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/taskapp/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue string `env:"STRING_VALUE" default:"default"`
	IntValue    int    `env:"INT_VALUE" default:"42"`
	Int64Value  int64  `env:"INT64_VALUE" default:"1000000"`
	BoolValue   bool   `env:"BOOL_VALUE" default:"true"`
	NoEnvTag    string
	Nested      testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

type requiredConfig struct {
	EnvConfig

	Secret string `env:"SECRET"`
}

func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	for k, v := range envVars {
		t.Setenv(k, v)
	}
}

func defaults() testConfig {
	return testConfig{
		StringValue: "default",
		IntValue:    42,
		Int64Value:  1000000,
		BoolValue:   true,
		Nested:      testNestedConfig{NestedString: "nested-default"},
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    func(*testConfig)
		wantErr bool
	}{
		{
			name:    "uses default values when env vars not set",
			prefix:  "",
			envVars: map[string]string{},
			want:    func(*testConfig) {},
		},
		{
			name:   "reads environment variables",
			prefix: "",
			envVars: map[string]string{
				"STRING_VALUE":   "env-value",
				"INT_VALUE":      "123",
				"INT64_VALUE":    "7",
				"BOOL_VALUE":     "false",
				"NESTED_STRING":  "env-nested",
				"UNRELATED_NAME": "ignored",
			},
			want: func(c *testConfig) {
				c.StringValue = "env-value"
				c.IntValue = 123
				c.Int64Value = 7
				c.BoolValue = false
				c.Nested.NestedString = "env-nested"
			},
		},
		{
			name:   "handles prefix correctly",
			prefix: "APP",
			envVars: map[string]string{
				"APP_STRING_VALUE": "prefixed-value",
			},
			want: func(c *testConfig) {
				c.StringValue = "prefixed-value"
			},
		},
		{
			name:   "handles multi-level prefixes",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"APP_SERVICE_STRING_VALUE":  "multi-level-prefix",
				"APP_SERVICE_NESTED_STRING": "nested-multi",
			},
			want: func(c *testConfig) {
				c.StringValue = "multi-level-prefix"
				c.Nested.NestedString = "nested-multi"
			},
		},
		{
			name:   "prefers more specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"STRING_VALUE":             "bare",
				"APP_STRING_VALUE":         "less-specific",
				"APP_SERVICE_STRING_VALUE": "more-specific",
			},
			want: func(c *testConfig) {
				c.StringValue = "more-specific"
			},
		},
		{
			name:   "falls back to less specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"STRING_VALUE":  "bare",
				"APP_INT_VALUE": "9",
			},
			want: func(c *testConfig) {
				c.StringValue = "bare"
				c.IntValue = 9
			},
		},
		{
			name:   "empty value falls back to default",
			prefix: "",
			envVars: map[string]string{
				"STRING_VALUE": "",
			},
			want: func(*testConfig) {},
		},
		{
			name:   "handles zero int values",
			prefix: "",
			envVars: map[string]string{
				"INT_VALUE": "0",
			},
			want: func(c *testConfig) {
				c.IntValue = 0
			},
		},
		{
			name:   "fails on invalid int value",
			prefix: "",
			envVars: map[string]string{
				"INT_VALUE": "not-a-number",
			},
			wantErr: true,
		},
		{
			name:   "fails on invalid bool value",
			prefix: "",
			envVars: map[string]string{
				"BOOL_VALUE": "not-a-bool",
			},
			wantErr: true,
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t, tt.envVars)

			cfg := &testConfig{}
			err := Parse(ctx, cfg, tt.prefix)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			want := defaults()
			tt.want(&want)

			assert.Equal(t, want.StringValue, cfg.StringValue)
			assert.Equal(t, want.IntValue, cfg.IntValue)
			assert.Equal(t, want.Int64Value, cfg.Int64Value)
			assert.Equal(t, want.BoolValue, cfg.BoolValue)
			assert.Equal(t, want.NoEnvTag, cfg.NoEnvTag)
			assert.Equal(t, want.Nested, cfg.Nested)
			assert.Equal(t, tt.prefix, cfg.Namespace())
		})
	}
}

//nolint:paralleltest
func TestParseRequired(t *testing.T) {
	cfg := &requiredConfig{}
	require.Error(t, Parse(context.Background(), cfg, "REQTEST"))

	t.Setenv("REQTEST_SECRET", "s3cr3t")

	cfg = &requiredConfig{}
	require.NoError(t, Parse(context.Background(), cfg, "REQTEST"))
	assert.Equal(t, "s3cr3t", cfg.Secret)
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     interface{}
		wantErr error
	}{
		{
			name:    "non-pointer config",
			cfg:     testConfig{},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "non-struct pointer",
			cfg:     new(string),
			wantErr: ErrInvalidConfig,
		},
		{
			name: "missing EnvConfig embedding",
			cfg: &struct {
				Value string `env:"VALUE"`
			}{},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

//nolint:paralleltest
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(path, []byte("DOTENV_TEST_FRESH=from-file\nDOTENV_TEST_SET=from-file\n"), 0o600))

	t.Setenv("DOTENV_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_FRESH") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-file", os.Getenv("DOTENV_TEST_FRESH"))
	assert.Equal(t, "from-env", os.Getenv("DOTENV_TEST_SET"))
}
