package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsEnabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.False(t, Options{Addr: "  "}.Enabled())
	assert.True(t, Options{Addr: "localhost:6379"}.Enabled())
}

func TestNewRedisClientRejectsEmptyAddr(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Options{})
	assert.EqualError(t, err, "redis: addr is empty")
}
