package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
	"github.com/rtepass1986/reallifeberlin/internal/store/memory"
)

func newKPIService(t *testing.T, now time.Time) (*KPIService, *memory.Store) {
	t.Helper()

	st := memory.New()
	svc, err := NewKPIService(st, Options{Now: func() time.Time { return now }, Location: time.UTC})
	if err != nil {
		t.Fatalf("NewKPIService() err=%v, want nil", err)
	}
	return svc, st
}

func TestKPIService_CreateKPI(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKPIService(t, wednesday)

	mp, err := svc.CreateMissionPoint(ctx, NewMissionPoint{Name: " Wir bringen ", Order: 1})
	if err != nil {
		t.Fatalf("CreateMissionPoint() err=%v, want nil", err)
	}
	if mp.Name != "Wir bringen" {
		t.Fatalf("Name=%q, want trimmed", mp.Name)
	}

	k, err := svc.CreateKPI(ctx, domain.KPI{MissionPointID: mp.ID, Name: "Erstbesucher", Location: "Mitte"})
	if err != nil {
		t.Fatalf("CreateKPI() err=%v, want nil", err)
	}
	if k.TrackingFrequency != domain.FrequencyManual {
		t.Fatalf("TrackingFrequency=%s, want MANUAL", k.TrackingFrequency)
	}

	tests := []struct {
		name string
		in   domain.KPI
	}{
		{"no name", domain.KPI{MissionPointID: mp.ID}},
		{"no mission point", domain.KPI{Name: "x"}},
		{"unknown mission point", domain.KPI{MissionPointID: "missing", Name: "x"}},
		{"unknown frequency", domain.KPI{MissionPointID: mp.ID, Name: "x", TrackingFrequency: "HOURLY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateKPI(ctx, tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("CreateKPI() err=%v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestKPIService_UpdateKPI(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKPIService(t, wednesday)

	mp, _ := svc.CreateMissionPoint(ctx, NewMissionPoint{Name: "Wir bringen"})
	k, _ := svc.CreateKPI(ctx, domain.KPI{MissionPointID: mp.ID, Name: "Erstbesucher"})

	if _, err := svc.UpdateKPI(ctx, k.ID, KPIPatch{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("UpdateKPI(empty) err=%v, want ErrInvalidInput", err)
	}
	if _, err := svc.UpdateKPI(ctx, "missing", KPIPatch{Name: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateKPI(missing) err=%v, want ErrNotFound", err)
	}
	if _, err := svc.UpdateKPI(ctx, k.ID, KPIPatch{MissionPointID: strPtr("missing")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("UpdateKPI(unknown mission point) err=%v, want ErrInvalidInput", err)
	}

	got, err := svc.UpdateKPI(ctx, k.ID, KPIPatch{
		TrackingFrequency: strPtr("WEEKLY"),
		Category:          strPtr("ATTENDANCE"),
		Metadata:          map[string]any{"target": 40.0},
	})
	if err != nil {
		t.Fatalf("UpdateKPI() err=%v, want nil", err)
	}
	if got.Name != "Erstbesucher" || got.TrackingFrequency != domain.FrequencyWeekly || got.Category != "ATTENDANCE" {
		t.Fatalf("UpdateKPI() = %+v, want only patched fields changed", got)
	}
}

func TestKPIService_Records(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKPIService(t, wednesday)

	mp, _ := svc.CreateMissionPoint(ctx, NewMissionPoint{Name: "Wir begleiten"})
	k, _ := svc.CreateKPI(ctx, domain.KPI{MissionPointID: mp.ID, Name: "Kleingruppen"})

	rec, err := svc.AddRecord(ctx, k.ID, NewKPIRecord{Value: 12})
	if err != nil {
		t.Fatalf("AddRecord() err=%v, want nil", err)
	}
	if !rec.Date.Equal(wednesday) {
		t.Fatalf("Date=%v, want now %v", rec.Date, wednesday)
	}
	if _, err := svc.AddRecord(ctx, "missing", NewKPIRecord{Value: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AddRecord(missing) err=%v, want ErrNotFound", err)
	}

	for i := 1; i <= 120; i++ {
		if _, err := svc.AddRecord(ctx, k.ID, NewKPIRecord{Value: float64(i), Date: wednesday.AddDate(0, 0, -i)}); err != nil {
			t.Fatalf("AddRecord() err=%v, want nil", err)
		}
	}
	recs, err := svc.ListRecords(ctx, k.ID, store.RecordFilter{})
	if err != nil {
		t.Fatalf("ListRecords() err=%v, want nil", err)
	}
	if len(recs) != defaultRecordLimit || recs[0].Value != 12 {
		t.Fatalf("ListRecords() len=%d first=%v, want %d newest first", len(recs), recs[0].Value, defaultRecordLimit)
	}
	if _, err := svc.ListRecords(ctx, "missing", store.RecordFilter{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ListRecords(missing) err=%v, want ErrNotFound", err)
	}

	got, err := svc.GetMissionPoint(ctx, mp.ID)
	if err != nil {
		t.Fatalf("GetMissionPoint() err=%v, want nil", err)
	}
	if len(got.KPIs) != 1 || len(got.KPIs[0].Records) != missionPointRecordLimit {
		t.Fatalf("GetMissionPoint() = %+v, want one KPI with %d records", got.KPIs, missionPointRecordLimit)
	}
}

func TestKPIService_Trends(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKPIService(t, wednesday)

	mp, _ := svc.CreateMissionPoint(ctx, NewMissionPoint{Name: "Wir gehen"})
	k, _ := svc.CreateKPI(ctx, domain.KPI{MissionPointID: mp.ID, Name: "Taufen"})

	values := map[time.Time]float64{
		time.Date(2026, time.September, 30, 10, 0, 0, 0, time.UTC): 100,
		time.Date(2026, time.October, 5, 10, 0, 0, 0, time.UTC):    4,
		time.Date(2026, time.October, 6, 10, 0, 0, 0, time.UTC):    8,
		time.Date(2026, time.October, 20, 10, 0, 0, 0, time.UTC):   6,
	}
	for d, v := range values {
		if _, err := svc.AddRecord(ctx, k.ID, NewKPIRecord{Value: v, Date: d}); err != nil {
			t.Fatalf("AddRecord() err=%v, want nil", err)
		}
	}

	from := store.RecordFilter{From: time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)}

	got, err := svc.Trends(ctx, k.ID, from, domain.GroupByMonth)
	if err != nil {
		t.Fatalf("Trends() err=%v, want nil", err)
	}
	if len(got) != 1 || got[0] != (domain.TrendPoint{Period: "2026-10", Value: 6}) {
		t.Fatalf("Trends(month) = %+v, want [{2026-10 6}]", got)
	}

	got, _ = svc.Trends(ctx, k.ID, from, domain.GroupByWeek)
	want := []domain.TrendPoint{{Period: "2026-W41", Value: 6}, {Period: "2026-W43", Value: 6}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Trends(week) = %+v, want %+v", got, want)
	}

	if _, err := svc.Trends(ctx, "missing", from, domain.GroupByDay); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Trends(missing) err=%v, want ErrNotFound", err)
	}
}

func TestDashboard_MissionPointsAndStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.workflow(t)

	kpis, err := NewKPIService(f.store, Options{Now: func() time.Time { return f.now }})
	if err != nil {
		t.Fatalf("NewKPIService() err=%v, want nil", err)
	}
	second, _ := kpis.CreateMissionPoint(ctx, NewMissionPoint{Name: "Wir begleiten", Order: 2})
	first, _ := kpis.CreateMissionPoint(ctx, NewMissionPoint{Name: "Wir bringen", Order: 1})
	k, _ := kpis.CreateKPI(ctx, domain.KPI{MissionPointID: first.ID, Name: "Erstbesucher"})
	_, _ = kpis.AddRecord(ctx, k.ID, NewKPIRecord{Value: 30, Date: wednesday.AddDate(0, 0, -30)})
	_, _ = kpis.AddRecord(ctx, k.ID, NewKPIRecord{Value: 42, Date: wednesday.AddDate(0, 0, -2)})

	svc, err := NewDashboardService(f.store, Options{Now: func() time.Time { return f.now }})
	if err != nil {
		t.Fatalf("NewDashboardService() err=%v, want nil", err)
	}
	dash, err := svc.Dashboard(ctx, store.RecordFilter{From: wednesday.AddDate(0, 0, -7)})
	if err != nil {
		t.Fatalf("Dashboard() err=%v, want nil", err)
	}

	if len(dash.MissionPoints) != 2 || dash.MissionPoints[0].ID != first.ID || dash.MissionPoints[1].ID != second.ID {
		t.Fatalf("MissionPoints = %+v, want ordered by order", dash.MissionPoints)
	}
	recs := dash.MissionPoints[0].KPIs[0].Records
	if len(recs) != 1 || recs[0].Value != 42 {
		t.Fatalf("Records = %+v, want only the record inside the range", recs)
	}
	if dash.Stats.TotalContacts != 1 || dash.Stats.ActiveWorkflows != 1 || dash.Stats.PendingTasks != 6 {
		t.Fatalf("Stats = %+v, want 1 contact, 1 workflow, 6 pending", dash.Stats)
	}
}
