package scheduler

import (
	"context"
	"sync"
	"time"

	"trustgateway/logger"
)

// Job 주기적으로 실행할 작업
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler 등록된 작업을 각자의 주기로 실행한다
type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

// New 스케줄러 생성. Interval 이 0 이하인 작업은 1시간 주기로 돈다
func New(jobs ...Job) *Scheduler {
	for i := range jobs {
		if jobs[i].Interval <= 0 {
			jobs[i].Interval = time.Hour
		}
	}
	return &Scheduler{jobs: jobs}
}

// Start 스케줄러 시작. 서버 시작 시 즉시 한 번 실행하고, ctx 가 취소되면 멈춘다
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("Scheduler started (%d jobs)", len(s.jobs))

	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()

			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			runJob(ctx, job)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					logger.Debug("Scheduler tick: %s", job.Name)
					runJob(ctx, job)
				}
			}
		}(job)
	}
}

// Wait 모든 작업 고루틴이 끝날 때까지 기다린다
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func runJob(ctx context.Context, job Job) {
	started := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.WithFields(map[string]interface{}{
			"job":   job.Name,
			"error": err.Error(),
		}).Error("Scheduled task failed")
		return
	}
	logger.WithFields(map[string]interface{}{
		"job":      job.Name,
		"duration": time.Since(started).String(),
	}).Debug("Scheduled task finished")
}
