// Package cronrunner wraps robfig/cron with base-context injection so
// scheduled rounds observe process shutdown.
package cronrunner

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add schedules a job. The spec accepts seconds-resolution cron syntax
// plus descriptors like "@every 5s".
func (r *Runner) Add(spec string, job func(context.Context)) error {
	_, err := r.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if r != nil && r.baseCtx != nil {
			ctx = r.baseCtx
		}
		job(ctx)
	})
	if err != nil {
		return err
	}
	if r.logger != nil {
		r.logger.Info("job scheduled", zap.String("spec", spec))
	}
	return nil
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("round scheduler started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("round scheduler stopped")
	}
}
