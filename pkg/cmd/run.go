package cmd

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/klwxsrx/go-app-shell/pkg/log"
)

// Job runs until ctx is done or it completes.
type Job func(ctx context.Context) error

var errJobCompleted = errors.New("job completed")

// Run starts the jobs and stops them all as soon as the first one completes.
// It returns the first error other than a context cancellation.
func Run(ctx context.Context, logger log.Logger, jobs ...Job) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		group.Go(func() error {
			err := job(groupCtx)
			if err == nil || errors.Is(err, groupCtx.Err()) {
				return errJobCompleted
			}

			logger.WithError(err).Error(groupCtx, "running job completed with error")
			return err
		})
	}

	err := group.Wait()
	if !errors.Is(err, errJobCompleted) {
		return err
	}

	return nil
}
