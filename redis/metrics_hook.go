package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct {
	metrics *Metrics
}

func (h *metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.metrics.RecordCommand(ctx, cmd.Name(), time.Since(start), err)
		return err
	}
}

// ProcessPipelineHook splits the pipeline duration evenly across its commands.
func (h *metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		if len(cmds) == 0 {
			return err
		}
		per := time.Since(start) / time.Duration(len(cmds))
		for _, cmd := range cmds {
			h.metrics.RecordCommand(ctx, cmd.Name(), per, cmd.Err())
		}
		return err
	}
}
