package signals

import (
	"context"
	"syscall"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestContextCanceledBySignal(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	ctx, cancel := Context(context.Background(), log)
	defer cancel()
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		require.Fail(t, "context was not canceled by SIGTERM")
	}
}

func TestContextCanceledByParent(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := Context(parent, log)
	defer cancel()
	parentCancel()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		require.Fail(t, "context was not canceled with its parent")
	}
}
