package cmd_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/klwxsrx/go-app-shell/pkg/cmd"
	"github.com/klwxsrx/go-app-shell/pkg/log"
)

func waitForCancel(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	listenErr := errors.New("address already in use")

	tests := []struct {
		name     string
		jobs     []cmd.Job
		expected error
	}{
		{
			name: "stops_when_first_job_completes",
			jobs: []cmd.Job{
				waitForCancel,
				func(context.Context) error { return nil },
			},
		},
		{
			name: "returns_job_error",
			jobs: []cmd.Job{
				waitForCancel,
				func(context.Context) error { return listenErr },
			},
			expected: listenErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() { done <- cmd.Run(context.Background(), log.NewStub(), tt.jobs...) }()

			select {
			case err := <-done:
				assert.ErrorIs(t, err, tt.expected)
			case <-time.After(time.Second):
				t.Fatal("jobs were not stopped")
			}
		})
	}
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.Run(ctx, log.NewStub(), waitForCancel, waitForCancel)
	assert.NoError(t, err)
}
