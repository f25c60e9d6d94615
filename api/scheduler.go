/*
scheduler.go - Automated posting scheduler

PURPOSE:
  Periodically runs the auto-post sweep so auto-post schedules whose due
  date has arrived turn into posted entries without anyone clicking a
  button. The sweep itself lives in posting.Service; this file only owns
  the cadence.

DESIGN:
  - Driven by a cron expression (default: "5 0 * * *", shortly after
    midnight) rather than a fixed ticker, so the sweep runs once per
    calendar day no matter when the process started.
  - The swept "today" is the server date at fire time; the engine still
    treats it as an injected input.

USAGE:
  scheduler, err := NewPostingScheduler(handler.Posting, "5 0 * * *")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - posting/service.go: PostDue, the sweep itself
  - handlers.go: PostDueNow endpoint (manual sweep)
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/billing-engine/posting"
	"github.com/warp/billing-engine/schedule"
)

// DefaultPostingCronSpec fires the sweep shortly after midnight.
const DefaultPostingCronSpec = "5 0 * * *"

// PostingScheduler runs the auto-post sweep on a cron cadence.
type PostingScheduler struct {
	Service *posting.Service

	cron *cron.Cron
	spec string
}

// NewPostingScheduler creates a scheduler. An empty spec uses the default.
func NewPostingScheduler(service *posting.Service, spec string) (*PostingScheduler, error) {
	if spec == "" {
		spec = DefaultPostingCronSpec
	}

	ps := &PostingScheduler{
		Service: service,
		cron:    cron.New(),
		spec:    spec,
	}
	if _, err := ps.cron.AddFunc(spec, ps.sweep); err != nil {
		return nil, fmt.Errorf("invalid posting cron spec %q: %w", spec, err)
	}
	return ps, nil
}

// Start begins the scheduler.
func (ps *PostingScheduler) Start() {
	ps.cron.Start()
	log.Printf("[Scheduler] Started with cron spec: %q", ps.spec)
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (ps *PostingScheduler) Stop() {
	ctx := ps.cron.Stop()
	<-ctx.Done()
	log.Println("[Scheduler] Stopped")
}

func (ps *PostingScheduler) sweep() {
	today := schedule.DateOf(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	posted, err := ps.Service.PostDue(ctx, today)
	if err != nil {
		log.Printf("[Scheduler] Sweep failed for %s: %v", today, err)
		return
	}
	if posted > 0 {
		log.Printf("[Scheduler] Posted %d due occurrences for %s", posted, today)
	}
}
