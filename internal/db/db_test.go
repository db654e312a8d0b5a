package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpenGivesUpAfterAttempts(t *testing.T) {
	start := time.Now()
	db, err := Open(context.Background(), "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1", 2, 10*time.Millisecond)
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "could not connect to db")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestOpenStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db, err := Open(ctx, "postgres://u:p@127.0.0.1:1/none?sslmode=disable", 5, time.Hour)
	assert.Nil(t, db)
	assert.Error(t, err)
}
