package service

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs periodic jobs on a cron runner. A job that is still
// running when its next activation comes up is skipped for that activation,
// and a panicking job is logged instead of killing the process.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	cronLog := cron.VerbosePrintfLogger(log.New(os.Stdout, "[cron] ", log.LstdFlags))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the runner and blocks until running jobs return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

// ScheduleInterval runs job every interval, rounded down to whole seconds
// with a one second minimum.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, errors.New("interval must be positive")
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(job)), nil
}

// ParseCustomSchedule validates a five-field cron expression as stored in
// EmailPreferences.CustomCron. A leading CRON_TZ= or TZ= pins its zone.
func ParseCustomSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}
