package lib

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// PeriodicJob is a recurring background task registered with the scheduler.
type PeriodicJob struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

func NewScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return nil, err
	}
	return sched, nil
}

// SchedulePeriodic registers each job as a duration job. A run that is still
// going when the next tick fires is rescheduled instead of overlapping.
func SchedulePeriodic(s gocron.Scheduler, ctx context.Context, jobs ...PeriodicJob) ([]string, error) {
	ids := make([]string, 0, len(jobs))
	for _, pj := range jobs {
		run := pj.Run
		j, err := s.NewJob(
			gocron.DurationJob(pj.Interval),
			gocron.NewTask(func() { run(ctx) }),
			gocron.WithName(pj.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			log.Printf("Error creating job %s: %s\n", pj.Name, err.Error())
			return ids, err
		}
		log.Printf("Job: %s %s every %s\n", j.ID().String(), j.Name(), pj.Interval)
		ids = append(ids, j.ID().String())
	}
	log.Printf("Jobs in queue: %d\n", len(s.Jobs()))
	return ids, nil
}
