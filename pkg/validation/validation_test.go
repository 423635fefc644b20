package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credstore/pkg/domain-errors"
)

type probe struct {
	DatabaseURL string `env:"DATABASE_URL" validate:"required"`
	MaxConns    int    `validate:"gte=1"`
	LogLevel    string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Name        string `validate:"notblank"`
}

func valid() probe {
	return probe{DatabaseURL: "postgres://x", MaxConns: 1, LogLevel: "info", Name: "n"}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(valid()))

	cases := []struct {
		name    string
		mutate  func(*probe)
		message string
	}{
		{"env name for required", func(p *probe) { p.DatabaseURL = "" }, "DATABASE_URL is required"},
		{"snake case without env tag", func(p *probe) { p.MaxConns = 0 }, "max_conns must be at least 1"},
		{"oneof", func(p *probe) { p.LogLevel = "trace" }, "LOG_LEVEL must be one of [debug info warn error]"},
		{"notblank", func(p *probe) { p.Name = "  " }, "name must not be blank"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid()
			tc.mutate(&p)
			err := Validate(p)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.message, err.Error())
		})
	}
}
