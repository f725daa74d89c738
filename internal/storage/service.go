package storage

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
)

// Query defaults and bounds.
const (
	DefaultListLimit     = 100
	MaxListLimit         = 1000
	DefaultLatestLimit   = 3
	DefaultAnalyticsDays = 7
)

const publishTimeout = 5 * time.Second

// Pagination describes one page of a list result.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListResult is a page of readings, newest first.
type ListResult struct {
	Data       []domain.EnrichedReading `json:"data"`
	Pagination Pagination               `json:"pagination"`
}

// Analytics is the administrative rollup over a trailing window of days.
type Analytics struct {
	Days             int                    `json:"days"`
	TotalRecords     int                    `json:"totalRecords"`
	RecordsInRange   int                    `json:"recordsInRange"`
	PerCityStats     []domain.CityStats     `json:"perCityStats"`
	PerCategoryStats []domain.CategoryStats `json:"perCategoryStats"`
}

// Service implements the storage operations over a Store.
type Service struct {
	store     Store
	validator *domain.Validator
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	publishes sync.WaitGroup
}

// NewService creates a Service. publisher may be nil.
func NewService(store Store, validator *domain.Validator, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		validator: validator,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Registry returns the city registry inserts are validated against.
func (s *Service) Registry() *domain.CityRegistry { return s.validator.Registry() }

// Insert validates and stores r. Accepted readings are published to the
// change feed in the background; a publish failure does not fail the insert.
func (s *Service) Insert(ctx context.Context, r domain.EnrichedReading) (domain.InsertResult, error) {
	if err := s.validator.ValidateEnriched(r); err != nil {
		s.metrics.Inserts.WithLabelValues(string(domain.KindOf(err))).Inc()
		return domain.InsertResult{}, err
	}

	start := time.Now()
	err := s.store.Insert(ctx, r)
	s.observe("insert", start)
	if err != nil {
		s.metrics.Inserts.WithLabelValues(string(domain.KindOf(err))).Inc()
		return domain.InsertResult{}, err
	}
	s.metrics.Inserts.WithLabelValues("stored").Inc()
	s.logger.Debug("reading stored", "id", r.ID, "city", r.City)

	if s.publisher != nil {
		s.publishes.Add(1)
		go s.publish(context.WithoutCancel(ctx), r)
	}
	return r.Summary(), nil
}

func (s *Service) publish(ctx context.Context, r domain.EnrichedReading) {
	defer s.publishes.Done()
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, r); err != nil {
		s.metrics.Published.WithLabelValues("error").Inc()
		s.logger.Warn("publish stored reading failed", "id", r.ID, "error", err)
		return
	}
	s.metrics.Published.WithLabelValues("success").Inc()
}

// Flush waits for in-flight publishes.
func (s *Service) Flush() {
	s.publishes.Wait()
}

// List returns page of readings, optionally for one city. limit must be in
// [1, MaxListLimit] and page at least 1, with the page offset fitting in an
// int.
func (s *Service) List(ctx context.Context, city string, limit, page int) (ListResult, error) {
	if limit < 1 || limit > MaxListLimit {
		return ListResult{}, domain.Errorf(domain.KindSchema, "limit must be between 1 and %d", MaxListLimit)
	}
	if page < 1 {
		return ListResult{}, domain.NewError(domain.KindSchema, "page must be at least 1")
	}
	if page-1 > math.MaxInt/limit {
		return ListResult{}, domain.Errorf(domain.KindSchema, "page %d is out of range for limit %d", page, limit)
	}
	defer s.observe("list", time.Now())

	f := Filter{City: city, Limit: limit, Offset: (page - 1) * limit}
	total, err := s.store.Count(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	data, err := s.store.Query(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Data: data,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// StatsByCity aggregates the readings of city within the optional bounds.
// Each bound applies on its own when the other is absent.
func (s *Service) StatsByCity(ctx context.Context, city string, from, to *int64) (domain.CityStats, error) {
	if !s.Registry().Contains(city) {
		return domain.CityStats{}, domain.Errorf(domain.KindRange, "invalid city %q, valid cities: %v", city, s.Registry().Names())
	}
	if from != nil && to != nil && *from > *to {
		return domain.CityStats{}, domain.NewError(domain.KindSchema, "startDate must not be after endDate")
	}
	defer s.observe("stats", time.Now())

	readings, err := s.store.Query(ctx, Filter{City: city, From: from, To: to})
	if err != nil {
		return domain.CityStats{}, err
	}
	return domain.ComputeCityStats(city, readings), nil
}

// Range returns every reading with start <= timestampUtc <= end, newest first.
func (s *Service) Range(ctx context.Context, start, end int64, city string) ([]domain.EnrichedReading, error) {
	if start > end {
		return nil, domain.NewError(domain.KindSchema, "startDate must not be after endDate")
	}
	defer s.observe("range", time.Now())
	return s.store.Query(ctx, Filter{City: city, From: &start, To: &end})
}

// Latest returns the limit most recent readings, globally or for city.
func (s *Service) Latest(ctx context.Context, city string, limit int) ([]domain.EnrichedReading, error) {
	if limit < 1 || limit > MaxListLimit {
		return nil, domain.Errorf(domain.KindSchema, "limit must be between 1 and %d", MaxListLimit)
	}
	defer s.observe("latest", time.Now())
	return s.store.Query(ctx, Filter{City: city, Limit: limit})
}

// Analytics rolls up the readings of the trailing days. Per-city stats are
// listed for registry cities with at least one reading in the window.
func (s *Service) Analytics(ctx context.Context, days int) (Analytics, error) {
	if days < 1 {
		return Analytics{}, domain.NewError(domain.KindSchema, "days must be at least 1")
	}
	defer s.observe("analytics", time.Now())

	total, err := s.store.Count(ctx, Filter{})
	if err != nil {
		return Analytics{}, err
	}
	from := domain.Now().Unix() - int64(days)*24*60*60
	inRange, err := s.store.Query(ctx, Filter{From: &from})
	if err != nil {
		return Analytics{}, err
	}

	byCity := make(map[string][]domain.EnrichedReading)
	for _, r := range inRange {
		byCity[r.City] = append(byCity[r.City], r)
	}
	perCity := make([]domain.CityStats, 0, len(byCity))
	for _, city := range s.Registry().Names() {
		if rs := byCity[city]; len(rs) > 0 {
			perCity = append(perCity, domain.ComputeCityStats(city, rs))
		}
	}

	return Analytics{
		Days:             days,
		TotalRecords:     total,
		RecordsInRange:   len(inRange),
		PerCityStats:     perCity,
		PerCategoryStats: domain.ComputeCategoryStats(inRange),
	}, nil
}

// Delete removes a reading permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	defer s.observe("delete", time.Now())
	return s.store.Delete(ctx, id)
}

// Count returns the number of stored readings.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx, Filter{})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// CheckReadiness reports whether the backing store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if p, ok := s.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
