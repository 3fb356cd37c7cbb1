package redis

import (
	"testing"

	"github.com/denizkaplan/lunera-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilders(t *testing.T) {
	c := &Client{}

	assert.Equal(t, "lunera:idempotency:evt:processed:order-mailer:abc", c.IdempotencyKey("evt:processed:order-mailer", "abc"))
	assert.Equal(t, "lunera:payment_callback:tok-1", c.CallbackTokenKey("tok-1"))
	assert.Equal(t, "lunera:idempotency:x", c.IdempotencyKey("", "x"))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 5})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)
}
