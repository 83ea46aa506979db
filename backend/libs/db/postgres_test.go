package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresDBRejectsEmptyDSN(t *testing.T) {
	_, err := NewPostgresDB(" ", PoolOptions{})
	assert.EqualError(t, err, "db: empty DSN")
}

func TestPoolOptionsDefaults(t *testing.T) {
	got := PoolOptions{MaxOpenConns: 10}.withDefaults()
	assert.Equal(t, PoolOptions{
		MaxOpenConns: 10,
		MaxIdleConns: 2,
		ConnLifetime: time.Hour,
		ConnIdleTime: 30 * time.Minute,
	}, got)
}
