// Package services – AnalyticsService
//
// This file implements AnalyticsService, the bridge between the feedback
// store and the pure analytics engine. Each call loads one snapshot of the
// store (concurrent loads are coalesced with singleflight), takes one
// immutable config snapshot, and runs the requested analysis. Nothing is
// cached between calls.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/notify"
)

// snapshotTimeout bounds one shared store load.
const snapshotTimeout = 30 * time.Second

// Overview bundles every analysis computed over one snapshot.
type Overview struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Records     int                        `json:"records"`
	Trends      analytics.TrendResult      `json:"trends"`
	SLA         analytics.SLAResult        `json:"sla"`
	Geo         analytics.GeoResult        `json:"geo"`
	Departments analytics.DepartmentResult `json:"departments"`
	Heatmap     analytics.HeatmapResult    `json:"heatmap"`
}

// AnalyticsService runs engine analyses over the current store contents.
type AnalyticsService struct {
	Store    FeedbackStore
	Config   *analytics.Store
	Notifier Notifier
	Now      func() time.Time

	loads singleflight.Group
}

// NewAnalyticsService wires a service.
func NewAnalyticsService(store FeedbackStore, cfg *analytics.Store, n Notifier) *AnalyticsService {
	return &AnalyticsService{Store: store, Config: cfg, Notifier: n}
}

func (s *AnalyticsService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// snapshot loads every row as engine records. The returned slice is shared
// between coalesced callers and must not be modified.
func (s *AnalyticsService) snapshot(ctx context.Context) ([]analytics.Record, error) {
	v, err, _ := s.loads.Do("all", func() (any, error) {
		// The load is shared by every coalesced caller, so one client going
		// away must not cancel it for the rest.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		items, err := s.Store.All(loadCtx)
		if err != nil {
			return nil, err
		}
		return domain.ToRecords(items), nil
	})
	if err != nil {
		return nil, fmt.Errorf("load feedback snapshot: %w", err)
	}
	return v.([]analytics.Record), nil
}

func (s *AnalyticsService) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/AnalyticsService").Start(ctx, op, trace.WithAttributes(attrs...))
}

// Trends buckets submissions by period ("daily", "weekly", "monthly").
// An unknown period yields analytics.ErrUnknownPeriod.
func (s *AnalyticsService) Trends(ctx context.Context, period string) (analytics.TrendResult, error) {
	ctx, span := s.start(ctx, "Trends", attribute.String("period", period))
	defer span.End()

	p, err := analytics.ParsePeriod(period)
	if err != nil {
		return analytics.TrendResult{}, err
	}
	recs, err := s.snapshot(ctx)
	if err != nil {
		return analytics.TrendResult{}, err
	}
	return analytics.CalculateTrends(recs, p, s.Config.Snapshot()), nil
}

// SLA predicts breaches for open tickets at the service clock.
func (s *AnalyticsService) SLA(ctx context.Context) (analytics.SLAResult, error) {
	ctx, span := s.start(ctx, "SLA")
	defer span.End()

	recs, err := s.snapshot(ctx)
	if err != nil {
		return analytics.SLAResult{}, err
	}
	return analytics.PredictSLABreaches(recs, s.Config.Snapshot(), s.now()), nil
}

// Geo ranks area hotspots, optionally restricted to one category.
func (s *AnalyticsService) Geo(ctx context.Context, topN int, category string) (analytics.GeoResult, error) {
	ctx, span := s.start(ctx, "Geo", attribute.Int("top_n", topN), attribute.String("category", category))
	defer span.End()

	recs, err := s.snapshot(ctx)
	if err != nil {
		return analytics.GeoResult{}, err
	}
	cfg := s.Config.Snapshot()
	if category != "" {
		return analytics.AnalyzeGeospatialByCategory(recs, category, cfg, topN), nil
	}
	return analytics.AnalyzeGeospatialDistribution(recs, cfg, topN), nil
}

// Departments scores every department.
func (s *AnalyticsService) Departments(ctx context.Context) (analytics.DepartmentResult, error) {
	ctx, span := s.start(ctx, "Departments")
	defer span.End()

	recs, err := s.snapshot(ctx)
	if err != nil {
		return analytics.DepartmentResult{}, err
	}
	return analytics.AnalyzeDepartmentPerformance(recs, s.Config.Snapshot()), nil
}

// Heatmap tallies submissions by weekday and hour.
func (s *AnalyticsService) Heatmap(ctx context.Context) (analytics.HeatmapResult, error) {
	ctx, span := s.start(ctx, "Heatmap")
	defer span.End()

	recs, err := s.snapshot(ctx)
	if err != nil {
		return analytics.HeatmapResult{}, err
	}
	return analytics.TemporalHeatmap(recs, s.Config.Snapshot()), nil
}

// Overview runs every analysis concurrently over a single snapshot, config
// and clock reading.
func (s *AnalyticsService) Overview(ctx context.Context, period string) (Overview, error) {
	ctx, span := s.start(ctx, "Overview", attribute.String("period", period))
	defer span.End()

	p, err := analytics.ParsePeriod(period)
	if err != nil {
		return Overview{}, err
	}
	recs, err := s.snapshot(ctx)
	if err != nil {
		return Overview{}, err
	}
	cfg := s.Config.Snapshot()
	now := s.now()

	out := Overview{GeneratedAt: now, Records: len(recs)}
	var g errgroup.Group
	g.Go(func() error { out.Trends = analytics.CalculateTrends(recs, p, cfg); return nil })
	g.Go(func() error { out.SLA = analytics.PredictSLABreaches(recs, cfg, now); return nil })
	g.Go(func() error { out.Geo = analytics.AnalyzeGeospatialDistribution(recs, cfg, 0); return nil })
	g.Go(func() error { out.Departments = analytics.AnalyzeDepartmentPerformance(recs, cfg); return nil })
	g.Go(func() error { out.Heatmap = analytics.TemporalHeatmap(recs, cfg); return nil })
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// CurrentConfig returns a copy of the active engine configuration.
func (s *AnalyticsService) CurrentConfig() analytics.Config {
	return s.Config.Snapshot()
}

// ReplaceConfig validates and activates cfg; analyses already running keep
// the snapshot they started with.
//
// A new timezone applies to bucketing only. Cron schedules of the background
// jobs stay in the zone the process started with until restart.
func (s *AnalyticsService) ReplaceConfig(cfg analytics.Config) (analytics.Config, error) {
	prev := s.Config.Snapshot().Timezone
	if err := s.Config.Replace(cfg); err != nil {
		return analytics.Config{}, err
	}
	active := s.Config.Snapshot()
	log.Info().Str("timezone", active.Timezone).Int("departments", len(active.DepartmentMapping)).Msg("analytics config replaced")
	if active.Timezone != prev {
		log.Warn().
			Str("previous", prev).
			Str("timezone", active.Timezone).
			Msg("analytics timezone changed; job schedules keep the startup timezone until restart")
	}
	return active, nil
}

// CheckSLA is the watchdog job: it refreshes the SLA gauges and, when any
// ticket is breached, sends an sla-breached event.
func (s *AnalyticsService) CheckSLA(ctx context.Context) (analytics.SLAResult, error) {
	res, err := s.SLA(ctx)
	if err != nil {
		return res, err
	}
	slaBreached.Set(float64(res.BreachCount))
	slaAtRisk.Set(float64(res.AtRiskCount))

	lg := log.With().Str("job", "sla-watchdog").Logger()
	lg.Info().Int("breached", res.BreachCount).Int("at_risk", res.AtRiskCount).Msg("sla check complete")

	if res.BreachCount > 0 && s.Notifier != nil && s.Notifier.Enabled() {
		if err := s.Notifier.Send(ctx, notify.EventSLABreached, notify.NewSLABreached(res, s.now())); err != nil {
			lg.Error().Err(err).Str("event", string(notify.EventSLABreached)).Msg("notification failed")
		}
	}
	return res, nil
}
