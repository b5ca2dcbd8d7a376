// pkg/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"campushours/pkg/hours"
	"campushours/pkg/log"
	"campushours/pkg/metrics"
	"campushours/pkg/normalize"
)

// ErrNoData marks an extraction that found no structural elements at all.
// It is retried like any extraction fault and must never reach the store.
var ErrNoData = errors.New("no hours data found on the page")

// Fetcher produces a facility's raw hours; the browser-backed
// implementation lives in pkg/extract.
type Fetcher interface {
	Fetch(ctx context.Context, facility hours.Facility) (hours.RawHours, error)
}

// Gateway is the persistence boundary: atomic full-replace writes and a
// best-effort append-only log.
type Gateway interface {
	ReplaceFacilityHours(ctx context.Context, facilityType hours.FacilityType, entries []hours.Entry) error
	AppendScrapeLog(ctx context.Context, facilityType hours.FacilityType, status hours.ScrapeStatus, message string)
}

// Options tunes retry behavior and per-facility deadlines.
type Options struct {
	// Attempts is the total extraction attempts per facility, including
	// the first. Minimum 1.
	Attempts int
	// RetryDelay is the initial backoff delay; it doubles per retry.
	RetryDelay time.Duration
	// FacilityTimeout bounds one facility's extraction phase.
	FacilityTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Attempts < 1 {
		o.Attempts = 2
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 5 * time.Second
	}
	if o.FacilityTimeout <= 0 {
		o.FacilityTimeout = 2 * time.Minute
	}
}

// FacilityOutcome is the per-facility result of one run.
type FacilityOutcome struct {
	Facility hours.FacilityType `json:"facility"`
	Status   hours.ScrapeStatus `json:"status"`
	Records  int                `json:"records"`
	Attempts int                `json:"attempts"`
	Error    string             `json:"error,omitempty"`
}

// RunReport aggregates one full run.
type RunReport struct {
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  time.Time         `json:"completed_at"`
	Outcomes     []FacilityOutcome `json:"outcomes"`
	TotalRecords int               `json:"total_records"`
	Failures     int               `json:"failures"`
}

// Scheduler runs the facilities strictly sequentially. A mutex held for the
// whole run keeps overlapping triggers from racing one facility's
// delete+insert transaction.
type Scheduler struct {
	runLock    sync.Mutex
	fetcher    Fetcher
	gateway    Gateway
	facilities []hours.Facility
	options    Options
	meters     *metrics.Metrics
}

// New wires a scheduler. meters may be nil when metrics are not served.
func New(fetcher Fetcher, gateway Gateway, facilities []hours.Facility, options Options, meters *metrics.Metrics) *Scheduler {
	options.applyDefaults()
	return &Scheduler{
		fetcher:    fetcher,
		gateway:    gateway,
		facilities: facilities,
		options:    options,
		meters:     meters,
	}
}

// RunAll scrapes every facility in order. One facility's failure never
// aborts the run.
func (s *Scheduler) RunAll(ctx context.Context) RunReport {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	report := RunReport{StartedAt: time.Now()}
	log.L().Info("run_start", zap.Int("facilities", len(s.facilities)))

	for _, facility := range s.facilities {
		if ctx.Err() != nil {
			break
		}
		outcome := s.runFacility(ctx, facility)
		report.Outcomes = append(report.Outcomes, outcome)
		report.TotalRecords += outcome.Records
		if outcome.Status != hours.StatusSuccess {
			report.Failures++
		}
	}

	report.CompletedAt = time.Now()
	if s.meters != nil {
		s.meters.RunsTotal.WithLabelValues(runOutcome(report)).Inc()
	}
	log.L().Info("run_done",
		zap.Int("total_records", report.TotalRecords),
		zap.Int("failures", report.Failures),
		zap.Duration("elapsed", report.CompletedAt.Sub(report.StartedAt)))
	return report
}

// RunOne scrapes a single facility. The facility type is validated before
// any browser resource is touched, and the run lock is still taken: a
// single-facility run performs the same delete+insert.
func (s *Scheduler) RunOne(ctx context.Context, raw string) (FacilityOutcome, error) {
	facilityType, err := hours.ParseFacilityType(raw)
	if err != nil {
		return FacilityOutcome{}, err
	}
	var facility *hours.Facility
	for index := range s.facilities {
		if s.facilities[index].Type == facilityType {
			facility = &s.facilities[index]
			break
		}
	}
	if facility == nil {
		return FacilityOutcome{}, fmt.Errorf("facility %q not configured", facilityType)
	}

	s.runLock.Lock()
	defer s.runLock.Unlock()
	return s.runFacility(ctx, *facility), nil
}

func runOutcome(report RunReport) string {
	switch {
	case report.Failures == 0:
		return "success"
	case report.Failures < len(report.Outcomes):
		return "partial"
	default:
		return "error"
	}
}

// runFacility drives one facility through its cycle:
// STARTED -> extraction (retried) -> normalize -> write -> SUCCESS/ERROR.
// Retries are invisible to the scrape log; only the final status lands.
func (s *Scheduler) runFacility(ctx context.Context, facility hours.Facility) FacilityOutcome {
	began := time.Now()
	outcome := FacilityOutcome{Facility: facility.Type}
	s.gateway.AppendScrapeLog(ctx, facility.Type, hours.StatusStarted,
		fmt.Sprintf("Beginning %s hours scrape", facility.Type))
	log.L().Info("facility_start", zap.String("facility", string(facility.Type)), zap.String("url", facility.URL))

	raw, attempts, err := s.fetchWithRetry(ctx, facility)
	outcome.Attempts = attempts
	if err != nil {
		return s.fail(ctx, outcome, began, fmt.Errorf("extraction: %w", err))
	}

	entries := normalize.Normalize(facility.Type, raw)

	// A persistence failure is fatal for this facility's cycle and is not
	// retried; the transaction leaves the old rows in place.
	if err := s.gateway.ReplaceFacilityHours(ctx, facility.Type, entries); err != nil {
		return s.fail(ctx, outcome, began, fmt.Errorf("persistence: %w", err))
	}

	outcome.Status = hours.StatusSuccess
	outcome.Records = len(entries)
	s.gateway.AppendScrapeLog(ctx, facility.Type, hours.StatusSuccess,
		fmt.Sprintf("Updated %d %s hour records", len(entries), facility.Type))
	if s.meters != nil {
		s.meters.FacilityScrapesTotal.WithLabelValues(string(facility.Type), string(hours.StatusSuccess)).Inc()
		s.meters.RecordsWritten.WithLabelValues(string(facility.Type)).Add(float64(len(entries)))
		s.meters.FacilityDuration.Observe(time.Since(began).Seconds())
	}
	log.L().Info("facility_done",
		zap.String("facility", string(facility.Type)),
		zap.Int("records", len(entries)),
		zap.Int("attempts", attempts))
	return outcome
}

func (s *Scheduler) fail(ctx context.Context, outcome FacilityOutcome, began time.Time, err error) FacilityOutcome {
	outcome.Status = hours.StatusError
	outcome.Error = err.Error()
	s.gateway.AppendScrapeLog(ctx, outcome.Facility, hours.StatusError, err.Error())
	if s.meters != nil {
		s.meters.FacilityScrapesTotal.WithLabelValues(string(outcome.Facility), string(hours.StatusError)).Inc()
		s.meters.FacilityDuration.Observe(time.Since(began).Seconds())
	}
	log.L().Warn("facility_failed",
		zap.String("facility", string(outcome.Facility)),
		zap.Error(err))
	return outcome
}

// fetchWithRetry wraps only the extraction phase (navigation + DOM work) in
// exponential backoff. An empty result counts as a failure so a transiently
// blank page gets its retry, but it is never written.
func (s *Scheduler) fetchWithRetry(ctx context.Context, facility hours.Facility) (hours.RawHours, int, error) {
	var raw hours.RawHours
	attempts := 0

	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, s.options.FacilityTimeout)
		defer cancel()

		fetched, err := s.fetcher.Fetch(attemptCtx, facility)
		if err != nil {
			log.L().Warn("fetch_attempt_failed",
				zap.String("facility", string(facility.Type)),
				zap.Int("attempt", attempts),
				zap.Error(err))
			return err
		}
		if fetched.Empty() {
			log.L().Warn("fetch_attempt_empty",
				zap.String("facility", string(facility.Type)),
				zap.Int("attempt", attempts))
			return ErrNoData
		}
		raw = fetched
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.options.RetryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.options.Attempts-1)), ctx))
	return raw, attempts, err
}
