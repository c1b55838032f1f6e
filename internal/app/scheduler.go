package app

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yungbote/rejap-backend/internal/platform/logger"
	"github.com/yungbote/rejap-backend/internal/services"
)

// prewarmScheduler periodically fills quizzes that still have no questions.
type prewarmScheduler struct {
	log       *logger.Logger
	quiz      services.QuizService
	batch     int
	scheduler *gocron.Scheduler
}

func newPrewarmScheduler(log *logger.Logger, quiz services.QuizService, batch int) *prewarmScheduler {
	return &prewarmScheduler{
		log:       log.With("component", "QuizPrewarmScheduler"),
		quiz:      quiz,
		batch:     batch,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the job every interval; a zero interval leaves it off.
func (p *prewarmScheduler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	_, err := p.scheduler.Every(interval).SingletonMode().Do(p.run, ctx)
	if err != nil {
		return err
	}
	p.scheduler.StartAsync()
	p.log.Info("quiz prewarm scheduled", "interval", interval.String(), "batch", p.batch)
	return nil
}

func (p *prewarmScheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := p.quiz.PrewarmEmpty(ctx, p.batch)
	if err != nil {
		p.log.Warn("quiz prewarm failed", "error", err)
		return
	}
	if res.Checked > 0 {
		p.log.Info("quiz prewarm finished", "checked", res.Checked, "populated", res.Populated, "failed", res.Failed)
	}
}

func (p *prewarmScheduler) Stop() {
	if p.scheduler.IsRunning() {
		p.scheduler.Stop()
	}
}
