// Package world 实现世界构建流水线：阶段执行器、地点阶段、角色阶段与编排器
package world

import (
	"context"
	"errors"
	"fmt"

	"world-forge-api/internal/domain/repository"
	wfnode "world-forge-api/internal/workflow/node"
	"world-forge-api/pkg/logger"
	"world-forge-api/pkg/metrics"
)

// DefaultMaxAttempts 每个工作单元的默认尝试次数
const DefaultMaxAttempts = 5

// Unit 在会话中执行的一段写入；返回 nil 时由 Runner 提交
type Unit func(ctx context.Context, sess repository.Session) error

// ExhaustedError 工作单元在全部尝试后仍失败
type ExhaustedError struct {
	Stage    string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Stage, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Runner 执行带重试与回滚的工作单元
type Runner struct {
	session     repository.Session
	maxAttempts int
}

// NewRunner maxAttempts <= 0 时使用默认值
func NewRunner(session repository.Session, maxAttempts int) *Runner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Runner{session: session, maxAttempts: maxAttempts}
}

// Session 返回 Runner 持有的会话
func (r *Runner) Session() repository.Session {
	return r.session
}

// Attempt 执行 unit，成功则提交；失败或 panic 时回滚本次写入并重试。
// 之前已提交的写入不受影响。
func (r *Runner) Attempt(ctx context.Context, stage string, unit Unit) error {
	var last error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &ExhaustedError{Stage: stage, Attempts: attempt - 1, Last: err}
		}

		err := r.run(ctx, unit)
		if err == nil {
			if err = r.session.Commit(ctx); err == nil {
				metrics.StageAttemptsTotal.WithLabelValues(stage, "success").Inc()
				return nil
			}
			err = fmt.Errorf("commit: %w", err)
		}

		if rbErr := r.session.Rollback(ctx); rbErr != nil {
			logger.Error(ctx, "rollback failed", rbErr, "stage", stage)
		}
		metrics.StageAttemptsTotal.WithLabelValues(stage, attemptOutcome(err)).Inc()
		logger.Warn(ctx, "stage attempt failed",
			"stage", stage,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"error", err.Error(),
		)
		last = err
	}
	return &ExhaustedError{Stage: stage, Attempts: r.maxAttempts, Last: last}
}

func (r *Runner) run(ctx context.Context, unit Unit) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return unit(ctx, r.session)
}

func attemptOutcome(err error) string {
	if errors.Is(err, wfnode.ErrExtraction) {
		return "extraction_failed"
	}
	return "error"
}
