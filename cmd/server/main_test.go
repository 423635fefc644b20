package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"credstore/internal/platform/config"
)

func TestApplyFlags(t *testing.T) {
	var got config.Server
	app := &cli.App{
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			got = applyFlags(cCtx, config.Defaults())
			return nil
		},
	}

	require.NoError(t, app.Run([]string{"credstore",
		"--addr", ":9999",
		"--schema-cache-ttl", "1m",
		"--tracing",
		"--kafka-brokers", "localhost:9092",
	}))

	defaults := config.Defaults()
	assert.Equal(t, ":9999", got.Addr)
	assert.Equal(t, time.Minute, got.SchemaCacheTTL)
	assert.True(t, got.TracingEnabled)
	assert.Equal(t, "localhost:9092", got.Kafka.Brokers)
	assert.Equal(t, defaults.Kafka.AuditTopic, got.Kafka.AuditTopic)
	assert.Equal(t, defaults.LogLevel, got.LogLevel)
	assert.Equal(t, defaults.MaxBodyBytes, got.MaxBodyBytes)
	assert.NoError(t, got.Validate())
}
