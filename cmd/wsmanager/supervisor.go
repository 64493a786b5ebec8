package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/wsmanager/pkg/wsmanager"
)

// supervisor runs managers one after another, starting a fresh one with
// backoff whenever the previous one fails.
type supervisor struct {
	logger     *slog.Logger
	newManager func() (*wsmanager.Manager, error)
	attach     func(*wsmanager.Manager)
	restarts   uint // 0 restarts forever
	delay      time.Duration
	maxDelay   time.Duration
}

func (s *supervisor) run(ctx context.Context) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(s.maxDelay),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("manager failed, restarting", "error", err, "restart", n+1)
		}),
		retry.RetryIf(func(err error) bool {
			var merr *wsmanager.Error
			return errors.As(err, &merr)
		}),
	}
	if s.restarts > 0 {
		opts = append(opts, retry.Attempts(s.restarts+1))
	} else {
		opts = append(opts, retry.UntilSucceeded())
	}

	err := retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return retry.Unrecoverable(err)
		}
		m, err := s.newManager()
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("create manager: %w", err))
		}
		if s.attach != nil {
			s.attach(m)
		}

		err = m.Start(ctx)
		if ctx.Err() != nil {
			return retry.Unrecoverable(ctx.Err())
		}
		return err
	}, opts...)

	if ctx.Err() != nil {
		return nil
	}
	return err
}
