package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	calls  atomic.Int32
	purged int64
	err    error
}

func (s *countingStore) PurgeExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return s.purged, s.err
}

func TestNewKeyPurger(t *testing.T) {
	_, err := NewKeyPurger(KeyPurgerConfig{}, &countingStore{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewKeyPurger(KeyPurgerConfig{Interval: time.Minute}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewKeyPurger(KeyPurgerConfig{Interval: time.Minute}, &countingStore{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, p.config.Timeout)
}

func TestKeyPurger_RunOnce(t *testing.T) {
	store := &countingStore{purged: 4}
	p, err := NewKeyPurger(KeyPurgerConfig{Interval: time.Minute}, store, nil)
	require.NoError(t, err)

	purged, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)

	store.err = errors.New("locked")
	_, err = p.RunOnce(context.Background())
	assert.EqualError(t, err, "locked")
}

func TestKeyPurger_StartStop(t *testing.T) {
	store := &countingStore{}
	p, err := NewKeyPurger(KeyPurgerConfig{Interval: 5 * time.Millisecond}, store, nil)
	require.NoError(t, err)

	p.Start(context.Background())
	p.Start(context.Background())

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx), "stopping twice is harmless")

	calls := store.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, store.calls.Load())
}
