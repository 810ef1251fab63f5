// Package jobs contains background workers driving the correlation pipeline.
package jobs

import (
	"log"
	"time"

	"github.com/dragonwatch/dragonwatch/internal/services"
)

// CorrelationJob periodically runs a correlation pass over the recent event
// snapshot. The interval is re-read from settings after every run so
// calibration changes take effect without a restart.
type CorrelationJob struct {
	correlationService *services.CorrelationService
}

// NewCorrelationJob creates a new correlation job
func NewCorrelationJob(correlationService *services.CorrelationService) *CorrelationJob {
	return &CorrelationJob{correlationService: correlationService}
}

// Run executes one iteration of the job
func (j *CorrelationJob) Run() (*services.PassSummary, error) {
	return j.correlationService.RunPass()
}

// Start begins the periodic correlation passes and blocks until stop closes
func (j *CorrelationJob) Start(stop <-chan struct{}) {
	settings, err := j.correlationService.Settings()
	interval := 5 * time.Minute
	if err != nil {
		log.Printf("Failed to load correlation settings, using default interval: %v", err)
	} else {
		interval = time.Duration(settings.PassIntervalMinutes) * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summary, err := j.Run()
			if err != nil {
				log.Printf("Correlation job error: %v", err)
				continue
			}
			if summary.Status == services.PassStatusSuccess {
				log.Printf("Correlation job: %d candidates, highest score %.1f",
					summary.CandidatesFound, summary.HighestScore)
			}

			// Pick up interval changes made through the settings API
			newSettings, err := j.correlationService.Settings()
			if err == nil {
				newInterval := time.Duration(newSettings.PassIntervalMinutes) * time.Minute
				if newInterval != interval {
					interval = newInterval
					ticker.Reset(interval)
					log.Printf("Correlation interval updated to %v", interval)
				}
			}

		case <-stop:
			log.Println("Correlation job stopped")
			return
		}
	}
}
