package service

import (
	"context"
	"sync"
	"time"
	"video_course_backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RollupJob 定期重新计算全部课程汇总，纠正漏算或并发写入造成的偏差
type RollupJob struct {
	Progress *ProgressService
	cron     *cron.Cron
	running  sync.Mutex
}

func NewRollupJob(progress *ProgressService) *RollupJob {
	return &RollupJob{Progress: progress}
}

// Start 表达式为空时不启动
func (j *RollupJob) Start(expr string) error {
	if expr == "" {
		logger.Log.Info("Rollup reconcile job disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(expr, func() { j.Run(context.Background(), "cron") }); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	logger.Log.Info("Rollup reconcile job scheduled", zap.String("cron", expr))
	return nil
}

// Run 同一时间只允许一次全量重算，重入时直接跳过
func (j *RollupJob) Run(ctx context.Context, trigger string) (int, error) {
	if !j.running.TryLock() {
		logger.Log.Info("Rollup reconcile already running, skipped", zap.String("trigger", trigger))
		return 0, nil
	}
	defer j.running.Unlock()

	start := time.Now()
	n, err := j.Progress.RecomputeAll(ctx, trigger)
	if err != nil {
		logger.Log.Error("Rollup reconcile failed", zap.String("trigger", trigger), zap.Error(err))
		return n, err
	}
	logger.Log.Info("Rollup reconcile finished",
		zap.String("trigger", trigger),
		zap.Int("recomputed", n),
		zap.Duration("elapsed", time.Since(start)))
	return n, nil
}

func (j *RollupJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}
