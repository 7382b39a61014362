package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/airquality"
)

// PrewarmJob keeps the air-quality caches warm for the configured points so
// that dashboard loads hit the cache instead of the upstream API.
type PrewarmJob struct {
	config  PrewarmConfig
	logger  zerolog.Logger
	service *airquality.Service
	metrics *PrewarmMetrics
}

// PrewarmMetrics tracks prewarm job statistics.
type PrewarmMetrics struct {
	mu sync.RWMutex

	TotalRuns        int64
	SuccessfulPoints int64
	FailedPoints     int64
	CurrentPrewarms  int64
	HistoryPrewarms  int64
	LastRunAt        time.Time
	LastRunDuration  time.Duration
	TotalDuration    time.Duration
}

// PrewarmJobConfig holds configuration for creating a PrewarmJob.
type PrewarmJobConfig struct {
	Config            PrewarmConfig
	Logger            zerolog.Logger
	AirQualityService *airquality.Service
}

// NewPrewarmJob creates a new prewarm job processor.
func NewPrewarmJob(cfg PrewarmJobConfig) *PrewarmJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultPrewarmConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HistoryHours <= 0 {
		config.HistoryHours = 24
	}

	return &PrewarmJob{
		config:  config,
		logger:  cfg.Logger,
		service: cfg.AirQualityService,
		metrics: &PrewarmMetrics{},
	}
}

// PrewarmResult contains the result of one prewarm run.
type PrewarmResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []PrewarmError
}

// PrewarmError represents an error during a prewarm run.
type PrewarmError struct {
	Operation string
	Point     Point
	Error     string
}

// Run executes the prewarm job for all configured points.
func (j *PrewarmJob) Run(ctx context.Context) *PrewarmResult {
	startTime := time.Now()
	result := &PrewarmResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache prewarm job")

	points := j.config.AllPoints()

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.prewarmWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("cache prewarm job completed")

	return result
}

type pointResult struct {
	point   Point
	success bool
	errors  []PrewarmError
}

func (j *PrewarmJob) prewarmWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.prewarmPoint(ctx, point)
		}
	}
}

func (j *PrewarmJob) prewarmPoint(ctx context.Context, point Point) pointResult {
	result := pointResult{
		point:   point,
		success: true,
	}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.config.PrewarmCurrent {
		// Current includes the weather backfill, so warming it also warms
		// the weather path.
		if _, err := j.service.Current(pointCtx, point.Lat, point.Lng); err != nil {
			result.errors = append(result.errors, PrewarmError{
				Operation: "current",
				Point:     point,
				Error:     err.Error(),
			})
			result.success = false
		} else {
			atomic.AddInt64(&j.metrics.CurrentPrewarms, 1)
		}
	}

	if j.config.PrewarmHistory {
		if _, err := j.service.History(pointCtx, point.Lat, point.Lng, j.config.HistoryHours); err != nil {
			result.errors = append(result.errors, PrewarmError{
				Operation: "history",
				Point:     point,
				Error:     err.Error(),
			})
			result.success = false
		} else {
			atomic.AddInt64(&j.metrics.HistoryPrewarms, 1)
		}
	}

	return result
}

func (j *PrewarmJob) updateMetrics(result *PrewarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *PrewarmJob) GetMetrics() PrewarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return PrewarmMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		SuccessfulPoints: j.metrics.SuccessfulPoints,
		FailedPoints:     j.metrics.FailedPoints,
		CurrentPrewarms:  atomic.LoadInt64(&j.metrics.CurrentPrewarms),
		HistoryPrewarms:  atomic.LoadInt64(&j.metrics.HistoryPrewarms),
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalDuration:    j.metrics.TotalDuration,
	}
}
