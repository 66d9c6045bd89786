package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/air-quality-explorer/internal/monitor"
)

// jobTimeout bounds one run; a single fetch may spend 30s in backoff.
const jobTimeout = 2 * time.Minute

// CountryRefresher reloads the cached country list.
type CountryRefresher interface {
	RefreshCountries(ctx context.Context) error
}

// Scheduler periodically polls watched sensors and refreshes cached lists.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *monitor.Service
	countries CountryRefresher
	interval  time.Duration
}

// New creates a new Scheduler. countries may be nil.
func New(interval time.Duration, service *monitor.Service, countries CountryRefresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		countries: countries,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.service.Watches()) == 0 && s.countries == nil {
		log.Println("scheduler: nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	log.Println("scheduler: running poll job")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if s.countries != nil {
		if err := s.countries.RefreshCountries(ctx); err != nil {
			log.Printf("scheduler: country refresh failed: %v", err)
		}
	}

	failed := s.service.PollAll(ctx)
	log.Printf("scheduler: completed poll job (%d watches, %d failed)", len(s.service.Watches()), failed)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
