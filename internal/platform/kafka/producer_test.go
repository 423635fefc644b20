package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credstore/internal/platform/config"
)

func TestNewRequiresBrokers(t *testing.T) {
	cfg := config.Defaults().Kafka
	cfg.Brokers = " , "

	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092,,b:9092 "))
	assert.Empty(t, splitBrokers(""))
}

func TestMessageRecord(t *testing.T) {
	msg := &Message{
		Topic:   "credstore.audit",
		Key:     []byte("schemas:1"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"action": "created"},
	}

	r := msg.record()
	assert.Equal(t, "credstore.audit", r.Topic)
	assert.Equal(t, "schemas:1", string(r.Key))
	require.Len(t, r.Headers, 1)
	assert.Equal(t, "action", r.Headers[0].Key)
	assert.Equal(t, "created", string(r.Headers[0].Value))
}
