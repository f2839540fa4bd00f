package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/regholl2023/minitrade/internal/model"
	"github.com/regholl2023/minitrade/internal/notifier"
	"github.com/regholl2023/minitrade/internal/quotesource"
	"github.com/regholl2023/minitrade/internal/recorder"
)

const (
	JobSpot  = "spot"
	JobDaily = "daily"
)

// DailyLookback is how many days of daily bars the daily job refreshes.
const DailyLookback = 7

// Job describes one registered cron entry.
type Job struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev"`
}

// Scheduler runs the quote capture jobs.
type Scheduler struct {
	Cron     *cron.Cron
	Source   quotesource.QuoteSource
	Tickers  []string
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	// Notify mails job failures when set.
	Notify bool
	Ctx    context.Context

	mu   sync.Mutex
	jobs map[cron.EntryID][2]string
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, src quotesource.QuoteSource, tickers []string, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Source:   src,
		Tickers:  tickers,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		jobs:     map[cron.EntryID][2]string{},
	}
}

// RegisterAll registers the spot and daily capture jobs. An empty spec skips that job.
func (s *Scheduler) RegisterAll(spotCron, dailyCron string) error {
	if spotCron != "" {
		if err := s.add(JobSpot, spotCron, s.spotTask); err != nil {
			return err
		}
	}
	if dailyCron != "" {
		if err := s.add(JobDaily, dailyCron, s.dailyTask); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	id, err := s.Cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.mu.Lock()
	s.jobs[id] = [2]string{name, spec}
	s.mu.Unlock()
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.WithField("jobs", len(s.Jobs())).Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// Jobs lists the registered jobs ordered by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Job
	for _, e := range s.Cron.Entries() {
		meta, ok := s.jobs[e.ID]
		if !ok {
			continue
		}
		out = append(out, Job{Name: meta[0], Schedule: meta[1], Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunSpotNow captures and records spot prices immediately.
func (s *Scheduler) RunSpotNow() (*model.Spot, error) {
	spot, err := s.Source.Spot(s.Ctx, s.Tickers)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordSpot(s.Source.Name(), spot); err != nil {
		return spot, fmt.Errorf("record spot: %w", err)
	}
	return spot, nil
}

// RunDailyNow refreshes the last DailyLookback days of daily bars.
func (s *Scheduler) RunDailyNow() (*model.Frame, error) {
	if len(s.Tickers) == 0 {
		return nil, fmt.Errorf("no tickers to watch")
	}
	start := s.Source.Today(s.Tickers[0]).AddDate(0, 0, -DailyLookback)
	f, err := s.Source.DailyBar(s.Ctx, quotesource.Many(s.Tickers...), start, time.Time{}, quotesource.WithAlign(false))
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordBars(s.Source.Name(), f); err != nil {
		return f, fmt.Errorf("record bars: %w", err)
	}
	return f, nil
}

func (s *Scheduler) spotTask() {
	logger := log.WithFields(log.Fields{"job": JobSpot, "source": s.Source.Name()})
	logger.Info("running spot capture")
	spot, err := s.RunSpotNow()
	if err != nil {
		s.fail(JobSpot, err)
		return
	}
	logger.WithField("quotes", len(spot.Quotes)).Info("spot captured")
}

func (s *Scheduler) dailyTask() {
	logger := log.WithFields(log.Fields{"job": JobDaily, "source": s.Source.Name()})
	logger.Info("running daily refresh")
	f, err := s.RunDailyNow()
	if err != nil {
		s.fail(JobDaily, err)
		return
	}
	logger.WithField("rows", f.Len()).Info("daily bars recorded")
}

func (s *Scheduler) fail(job string, err error) {
	log.WithField("job", job).WithError(err).Error("job failed")
	if !s.Notify {
		return
	}
	subject, body := notifier.FormatFailure(job, time.Now(), err)
	if err := notifier.SendWithRetry(s.Ctx, s.Notifier, subject, body, 3); err != nil {
		log.WithError(err).Error("send notification")
	}
}
