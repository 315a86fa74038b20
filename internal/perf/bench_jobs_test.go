package perf

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	jobmetrics "github.com/odyssey-erp/precifica/internal/jobs"
	"github.com/odyssey-erp/precifica/internal/markup"
	"github.com/odyssey-erp/precifica/internal/shared"
	"github.com/odyssey-erp/precifica/jobs"
)

type flakyRefresher struct {
	profiles []markup.Profile
}

func (f flakyRefresher) ListOpenHistorical(context.Context, shared.Period) ([]markup.Profile, error) {
	return f.profiles, nil
}

func (f flakyRefresher) RefreshHistorical(_ context.Context, p markup.Profile) (bool, error) {
	switch {
	case p.ID%50 == 0:
		return false, errors.New("ledger timeout")
	case p.ID%10 == 0:
		return false, shared.ErrNoReferenceData
	}
	return p.ID%2 == 0, nil
}

func TestHistoryRefreshReliability(t *testing.T) {
	profiles := make([]markup.Profile, 0, 500)
	for id := int64(1); id <= 500; id++ {
		profiles = append(profiles, markup.Profile{ID: id, CompanyID: id, Mode: markup.ModeAutoHistorical, Status: markup.StatusOpen})
	}
	reg := prometheus.NewRegistry()
	job := jobs.NewHistoryRefreshJob(flakyRefresher{profiles: profiles}, nil, nil, jobmetrics.NewMetrics(reg))

	summary, err := job.Run(context.Background(), shared.Period{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if summary.Failed != 10 || summary.Skipped != 40 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if ratio := float64(summary.Failed) / float64(len(profiles)); ratio > 0.05 {
		t.Fatalf("refresh failure ratio too high: %f", ratio)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	counterValue := func(name, label, value string) float64 {
		for _, fam := range families {
			if fam.GetName() != name {
				continue
			}
			for _, m := range fam.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == label && l.GetValue() == value {
						return m.GetCounter().GetValue()
					}
				}
			}
		}
		return 0
	}
	if got := counterValue("precifica_markup_profiles_refreshed_total", "outcome", jobs.OutcomeFailed); got != 10 {
		t.Fatalf("failed counter = %v", got)
	}
	if got := counterValue("precifica_jobs_total", "status", "success"); got != 1 {
		t.Fatalf("job runs counter = %v", got)
	}
}
