package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/authflow/pkg/health"
	"github.com/artem13815/authflow/pkg/health/checkers"
)

type stubChecker struct {
	name  string
	err   error
	calls int
}

func (s *stubChecker) Name() string { return s.name }

func (s *stubChecker) Check(context.Context) error {
	s.calls++
	return s.err
}

func TestReady_AllHealthy(t *testing.T) {
	a, b := &stubChecker{name: "a"}, &stubChecker{name: "b"}
	require.NoError(t, health.NewService(a, b).Ready(context.Background()))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestReady_StopsAtFirstFailure(t *testing.T) {
	down := errors.New("connection refused")
	a := &stubChecker{name: "mongo", err: down}
	b := &stubChecker{name: "redis"}

	err := health.NewService(a, b).Ready(context.Background())
	assert.ErrorIs(t, err, down)
	assert.ErrorContains(t, err, "mongo: connection refused")
	assert.Zero(t, b.calls)
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ch := checkers.NewRedisChecker(client)
	assert.Equal(t, "redis", ch.Name())
	require.NoError(t, ch.Check(context.Background()))

	mr.Close()
	assert.Error(t, ch.Check(context.Background()))
}
