package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/notifysync/pkg/config"
)

type serviceConfig struct {
	Storage string        `env:"STORAGE" envDefault:"memory"`
	Limit   int           `env:"LIMIT" envDefault:"50"`
	Delay   time.Duration `env:"DELAY" envDefault:"5s"`
	Tags    []string      `env:"TAGS" envSeparator:","`
}

type requiredConfig struct {
	URL string `env:"URL,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		opts []config.Option
		want serviceConfig
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: serviceConfig{Storage: "memory", Limit: 50, Delay: 5 * time.Second},
		},
		{
			name: "overrides",
			env:  map[string]string{"STORAGE": "postgres", "LIMIT": "10", "DELAY": "250ms", "TAGS": "x,y"},
			want: serviceConfig{Storage: "postgres", Limit: 10, Delay: 250 * time.Millisecond, Tags: []string{"x", "y"}},
		},
		{
			name: "prefix",
			env:  map[string]string{"NOTIFY_STORAGE": "mongo", "STORAGE": "ignored"},
			opts: []config.Option{config.WithPrefix("NOTIFY_")},
			want: serviceConfig{Storage: "mongo", Limit: 50, Delay: 5 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var cfg serviceConfig
			opts := append([]config.Option{config.WithEnvironment(tt.env)}, tt.opts...)
			require.NoError(t, config.Load(&cfg, opts...))
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	var missing requiredConfig
	err := config.Load(&missing, config.WithEnvironment(map[string]string{}))
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	var bad serviceConfig
	err = config.Load(&bad, config.WithEnvironment(map[string]string{"LIMIT": "many"}))
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	assert.ErrorIs(t, config.Load[serviceConfig](nil), config.ErrNilPointer)

	err = config.Load(&bad, config.WithEnvFiles("testdata/does-not-exist.env"))
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)

	assert.Panics(t, func() {
		config.MustLoad(&missing, config.WithEnvironment(map[string]string{}))
	})
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("CFG_TEST_LIMIT", "99")

	var cfg serviceConfig
	require.NoError(t, config.Load(&cfg,
		config.WithEnvFiles("testdata/notifyd.env"),
		config.WithPrefix("CFG_TEST_"),
	))

	assert.Equal(t, "redis", cfg.Storage)
	assert.Equal(t, 99, cfg.Limit)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
}
