package reports

import (
	"bytes"
	"testing"
	"time"

	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/period"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/scoring"
	"kpireview/internal/domain/staff"
)

var march = period.Month(2025, time.March, time.UTC)

func TestRenderPDF(t *testing.T) {
	card := ScoreCard{
		Staff:    staff.Profile{ID: "c1", DisplayName: "Casey", Role: staff.RoleClinician, PositionName: "Nurse"},
		Reviewer: "Dana",
		Breakdown: scoring.Breakdown{
			StaffID: "c1",
			Period:  march,
			Rows: []scoring.Row{
				{KPIID: "a", Title: "Hand hygiene", Floor: "3B", Weight: 10, Met: true, Earned: 10},
				{KPIID: "b", Title: "Charting", Weight: 20, Met: false, Plan: "Shadow senior nurse"},
			},
			Earned:   10,
			Possible: 30,
			Score:    33,
		},
		Trend:       []scoring.Point{{Key: "2025-02", Score: 50}, {Key: "2025-03", Score: 33}},
		GeneratedAt: time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC),
	}
	var buf bytes.Buffer
	if err := RenderPDF(&buf, card); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestRenderPDFEmptyPeriod(t *testing.T) {
	var buf bytes.Buffer
	card := ScoreCard{Staff: staff.Profile{DisplayName: "Empty"}, Breakdown: scoring.Breakdown{Period: march}}
	if err := RenderPDF(&buf, card); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected output")
	}
}

type staticSource struct {
	profiles []staff.Profile
	kpis     []kpi.KPI
	items    []review.Item
}

func (s staticSource) Version() uint64 { return 1 }
func (s staticSource) KPIs() []kpi.KPI { return s.kpis }
func (s staticSource) Profiles() []staff.Profile { return s.profiles }
func (s staticSource) ReviewItems() []review.Item { return s.items }

func TestBuildDashboard(t *testing.T) {
	in := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	src := staticSource{
		profiles: []staff.Profile{
			{ID: "d", DisplayName: "Dana", Role: staff.RoleDirector, Accept: true},
			{ID: "c1", DisplayName: "Casey", Role: staff.RoleClinician, Accept: true},
			{ID: "c2", DisplayName: "Cory", Role: staff.RoleClinician, Accept: true},
			{ID: "c3", DisplayName: "Cleo", Role: staff.RoleClinician, Accept: false},
			{ID: "a", DisplayName: "Admin", Role: staff.RoleSuperAdmin, Accept: true},
		},
		kpis: []kpi.KPI{{ID: "k", Weight: 10}},
		items: []review.Item{
			{StaffID: "c1", KPIID: "k", DirectorID: "d", Met: true, ReviewedAt: in},
		},
	}
	engine := scoring.NewEngine(func() scoring.Source { return src })
	resolver := hierarchy.NewResolver(src.profiles, []hierarchy.Assignment{
		{SubordinateID: "c1", SupervisorID: "d"},
		{SubordinateID: "c2", SupervisorID: "d"},
	})

	dir := BuildDashboard(src.profiles[0], march, src.profiles, src.items, resolver, engine)
	if dir.TeamSize != 2 || dir.TeamAverage != 100 || dir.ReviewsThisPeriod != 1 {
		t.Fatalf("unexpected director dashboard %+v", dir)
	}

	admin := BuildDashboard(src.profiles[4], march, src.profiles, src.items, resolver, engine)
	if admin.PendingApprovals != 1 || admin.UnassignedClinicians != 0 || admin.UnassignedDirectors != 1 {
		t.Fatalf("unexpected admin dashboard %+v", admin)
	}

	clin := BuildDashboard(src.profiles[1], march, src.profiles, src.items, resolver, engine)
	if clin.OwnScore == nil || *clin.OwnScore != 100 {
		t.Fatalf("unexpected clinician dashboard %+v", clin)
	}
}
