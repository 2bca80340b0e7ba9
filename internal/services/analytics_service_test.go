package services

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/notify"
	"github.com/tbourn/citizen-feedback/internal/repo"
)

func seedAnalytics(t *testing.T, st *repo.GormStore) {
	t.Helper()
	ctx := context.Background()
	rows := []domain.Feedback{
		// Open Critical ticket 5h old at fixedNow: breached.
		{ID: "T1", Timestamp: fixedNow.Add(-5 * time.Hour), Urgency: "Critical", Status: "New", Category: "Public Safety", Area: "Harlem", Sentiment: "Negative"},
		// Open High ticket 20h old: at risk.
		{ID: "T2", Timestamp: fixedNow.Add(-20 * time.Hour), Urgency: "High", Status: "In Progress", Category: "Roads & Transportation", Area: "Harlem", Sentiment: "Negative"},
		// Resolved within target.
		{ID: "T3", Timestamp: fixedNow.Add(-10 * 24 * time.Hour), UpdatedAt: fixedNow.Add(-9 * 24 * time.Hour), Urgency: "Low", Status: "Resolved", Category: "Roads & Transportation", Area: "Queens", Sentiment: "Positive"},
		{ID: "T4", Timestamp: fixedNow.Add(-8 * 24 * time.Hour), Urgency: "Medium", Status: "Closed", Category: "Healthcare", Area: "Queens", Sentiment: "Neutral", UpdatedAt: fixedNow.Add(-7 * 24 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, st.Create(ctx, &rows[i]))
	}
}

func newAnalyticsSvc(t *testing.T, n Notifier) *AnalyticsService {
	t.Helper()
	st := newTestStore(t)
	seedAnalytics(t, st)
	cfgStore, err := analytics.NewStore(analytics.DefaultConfig())
	require.NoError(t, err)
	svc := NewAnalyticsService(st, cfgStore, n)
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func TestAnalytics_Trends(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	res, err := svc.Trends(context.Background(), "daily")
	require.NoError(t, err)
	assert.Equal(t, analytics.PeriodDaily, res.Period)
	assert.False(t, res.Insufficient)

	_, err = svc.Trends(context.Background(), "hourly")
	assert.ErrorIs(t, err, analytics.ErrUnknownPeriod)
}

func TestAnalytics_SLA(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	res, err := svc.SLA(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.BreachCount)
	assert.Equal(t, 1, res.AtRiskCount)
	assert.Equal(t, 2, res.ClosedCount)
	require.Len(t, res.Breached, 1)
	assert.Equal(t, "T1", res.Breached[0].ID)
	assert.Equal(t, 100.0, res.CompliancePercentage)
}

func TestAnalytics_GeoAndCategoryFilter(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	all, err := svc.Geo(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalAreas)
	require.NotEmpty(t, all.Hotspots)
	assert.Equal(t, "Harlem", all.Hotspots[0].Area)

	roads, err := svc.Geo(context.Background(), 5, "roads & transportation")
	require.NoError(t, err)
	assert.Equal(t, 2, roads.TotalAreas)
}

func TestAnalytics_DepartmentsAndHeatmap(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	dep, err := svc.Departments(context.Background())
	require.NoError(t, err)
	assert.False(t, dep.Insufficient)
	assert.NotEmpty(t, dep.Departments)

	hm, err := svc.Heatmap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, hm.Total)
}

func TestAnalytics_OverviewMatchesIndividualCalls(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	ctx := context.Background()

	ov, err := svc.Overview(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, 4, ov.Records)
	assert.True(t, ov.GeneratedAt.Equal(fixedNow))

	sla, _ := svc.SLA(ctx)
	geo, _ := svc.Geo(ctx, 0, "")
	trends, _ := svc.Trends(ctx, "weekly")
	assert.Equal(t, sla, ov.SLA)
	assert.Equal(t, geo, ov.Geo)
	assert.Equal(t, trends, ov.Trends)

	_, err = svc.Overview(ctx, "yearly")
	assert.ErrorIs(t, err, analytics.ErrUnknownPeriod)
}

func TestAnalytics_ConcurrentCallsShareSnapshot(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.SLA(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, res.BreachCount)
		}()
	}
	wg.Wait()
}

func TestAnalytics_ReplaceConfig(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	cfg := svc.CurrentConfig()
	cfg.SLATargets[analytics.UrgencyCritical] = 10

	// Mutating the copy does not leak into the store.
	assert.Equal(t, 4.0, svc.CurrentConfig().SLATargets[analytics.UrgencyCritical])

	got, err := svc.ReplaceConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.SLATargets[analytics.UrgencyCritical])

	res, err := svc.SLA(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.BreachCount)

	bad := svc.CurrentConfig()
	bad.SLATargets[analytics.UrgencyLow] = -1
	_, err = svc.ReplaceConfig(bad)
	assert.ErrorIs(t, err, analytics.ErrInvalidConfig)
	assert.Equal(t, 10.0, svc.CurrentConfig().SLATargets[analytics.UrgencyCritical])
}

func TestCheckSLA_SendsBreachEvent(t *testing.T) {
	rec := newRecorder()
	svc := newAnalyticsSvc(t, rec)

	res, err := svc.CheckSLA(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.BreachCount)
	assert.Equal(t, []notify.Event{notify.EventSLABreached}, rec.wait(t, 1))
}

func TestCheckSLA_NoBreachNoEvent(t *testing.T) {
	rec := newRecorder()
	svc := newAnalyticsSvc(t, rec)
	svc.Now = func() time.Time { return fixedNow.Add(-2 * time.Hour) }

	res, err := svc.CheckSLA(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.BreachCount)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.events)
}

func TestAnalytics_SnapshotSurvivesCallerCancellation(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.SLA(ctx)
	require.NoError(t, err, "a shared load must not inherit one caller's cancellation")
	assert.Equal(t, 1, res.BreachCount)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestAnalytics_ReplaceConfigLogsNormalizedTimezone(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	buf := captureLog(t)

	cfg := svc.CurrentConfig()
	cfg.Timezone = "  "
	got, err := svc.ReplaceConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "UTC", got.Timezone)
	assert.Contains(t, buf.String(), `"timezone":"UTC"`)
	assert.NotContains(t, buf.String(), "job schedules keep", "UTC to UTC is not a change")
}

func TestAnalytics_ReplaceConfigWarnsOnTimezoneChange(t *testing.T) {
	svc := newAnalyticsSvc(t, nil)
	buf := captureLog(t)

	cfg := svc.CurrentConfig()
	cfg.Timezone = "Europe/Athens"
	got, err := svc.ReplaceConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Athens", got.Location().String())
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"previous":"UTC"`)
	assert.Contains(t, buf.String(), "job schedules keep the startup timezone")
}
