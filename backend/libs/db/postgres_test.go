package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfigDefaults(t *testing.T) {
	got := PoolConfig{}.withDefaults()
	assert.Equal(t, defaultMaxOpenConns, got.MaxOpenConns)
	assert.Equal(t, defaultMaxIdleConns, got.MaxIdleConns)
	assert.Equal(t, defaultConnLifetime, got.ConnMaxLifetime)
	assert.Equal(t, defaultConnIdleTime, got.ConnMaxIdleTime)
}

func TestPoolConfigClampsIdle(t *testing.T) {
	got := PoolConfig{MaxOpenConns: 2, MaxIdleConns: 10, ConnMaxLifetime: time.Minute}.withDefaults()
	assert.Equal(t, 2, got.MaxIdleConns)
	assert.Equal(t, time.Minute, got.ConnMaxLifetime)
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "  ", PoolConfig{})
	assert.EqualError(t, err, "db: empty DSN")
}
