// Package jobs runs periodic maintenance of tender state.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type TenderCloser interface {
	CloseExpiredTenders(ctx context.Context, now time.Time) (int64, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Scheduler struct {
	scheduler gocron.Scheduler
	store     TenderCloser
	cache     Invalidator
	now       func() time.Time
}

// NewScheduler registers the close-expired job to run every interval.
// cache may be nil.
func NewScheduler(store TenderCloser, cache Invalidator, interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &Scheduler{scheduler: s, store: store, cache: cache, now: time.Now}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.CloseExpired, context.Background()),
		gocron.WithName("close-expired-tenders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("register close-expired job: %w", err)
	}
	return js, nil
}

func (js *Scheduler) Start() {
	log.Printf("[jobs] starting scheduler")
	js.scheduler.Start()
}

func (js *Scheduler) Stop() error {
	log.Printf("[jobs] stopping scheduler")
	return js.scheduler.Shutdown()
}

// CloseExpired moves ACTIVE tenders past their submission deadline to CLOSED.
func (js *Scheduler) CloseExpired(ctx context.Context) {
	n, err := js.store.CloseExpiredTenders(ctx, js.now())
	if err != nil {
		log.Printf("[jobs] close expired tenders: %v", err)
		return
	}
	if n == 0 {
		return
	}
	log.Printf("[jobs] closed %d expired tenders", n)
	if js.cache != nil {
		js.cache.Invalidate(ctx)
	}
}
