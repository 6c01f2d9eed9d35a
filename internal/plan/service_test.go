package plan

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/models"
	"github.com/rotapost/rotapost/internal/store"
)

var testDay = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

func setupService(t *testing.T, now time.Time) (*Service, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewService(
		store.NewPostRepository(db),
		store.NewSlotRepository(db),
		store.NewSettingsRepository(db),
		clock.NewFixed(now),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, db
}

func seedCompanyPost(t *testing.T, db *store.DB, name string, premium bool) {
	t.Helper()

	companies := store.NewCompanyRepository(db)
	posts := store.NewPostRepository(db)

	c := &models.Company{Name: name, PreferredTime: "", Premium: premium}
	if err := companies.Create(c); err != nil {
		t.Fatalf("create company: %v", err)
	}
	p := &models.Post{
		CompanyID: c.ID,
		Title:     name + " promo",
		Body:      "body",
		Active:    true,
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
	}
	if err := posts.Create(p); err != nil {
		t.Fatalf("create post: %v", err)
	}
}

func enableScheduler(t *testing.T, db *store.DB) {
	t.Helper()

	settings := store.NewSettingsRepository(db)
	s := store.DefaultSettings()
	s.Enabled = true
	s.StartTime = "09:00"
	s.EndTime = "12:00"
	s.MinIntervalMinutes = 30
	if err := settings.Save(s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}

func TestRunPersistsSlots(t *testing.T) {
	svc, db := setupService(t, testDay.Add(8*time.Hour))
	enableScheduler(t, db)
	seedCompanyPost(t, db, "Alpha", false)
	seedCompanyPost(t, db, "Beta", false)

	p, err := svc.Run(testDay, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.TotalPublications == 0 {
		t.Fatal("expected a non-empty plan")
	}

	slots := store.NewSlotRepository(db)
	rows, err := slots.ListByDay(testDay, testDay.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(rows) != p.TotalPublications {
		t.Fatalf("persisted %d slots, plan had %d", len(rows), p.TotalPublications)
	}
	for i, row := range rows {
		if !row.ScheduledAt.Equal(p.Slots[i].At) {
			t.Fatalf("slot %d scheduled at %v, want %v", i, row.ScheduledAt, p.Slots[i].At)
		}
		if row.Status != models.SlotPending {
			t.Fatalf("slot %d status = %q, want pending", i, row.Status)
		}
	}
}

func TestRunReplacesEarlierPlan(t *testing.T) {
	svc, db := setupService(t, testDay.Add(8*time.Hour))
	enableScheduler(t, db)
	seedCompanyPost(t, db, "Alpha", false)

	first, err := svc.Run(testDay, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.Run(testDay, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.TotalPublications != second.TotalPublications {
		t.Fatalf("replan changed plan size: %d vs %d", first.TotalPublications, second.TotalPublications)
	}

	slots := store.NewSlotRepository(db)
	rows, err := slots.ListByDay(testDay, testDay.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(rows) != second.TotalPublications {
		t.Fatalf("expected %d slots after replan, got %d", second.TotalPublications, len(rows))
	}
}

func TestForecastDoesNotPersist(t *testing.T) {
	svc, db := setupService(t, testDay.Add(8*time.Hour))
	enableScheduler(t, db)
	seedCompanyPost(t, db, "Alpha", false)

	p, err := svc.Forecast(testDay, false, nil)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if p.TotalPublications == 0 {
		t.Fatal("expected a non-empty forecast")
	}

	slots := store.NewSlotRepository(db)
	rows, err := slots.ListByDay(testDay, testDay.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("forecast persisted %d slots", len(rows))
	}
}

func TestForecastOverrideSettings(t *testing.T) {
	svc, db := setupService(t, testDay.Add(8*time.Hour))
	enableScheduler(t, db)
	seedCompanyPost(t, db, "Alpha", false)

	base, err := svc.Forecast(testDay, false, nil)
	if err != nil {
		t.Fatalf("base forecast: %v", err)
	}

	override := store.DefaultSettings()
	override.StartTime = "09:00"
	override.EndTime = "10:00"
	override.MinIntervalMinutes = 30
	narrow, err := svc.Forecast(testDay, false, &override)
	if err != nil {
		t.Fatalf("override forecast: %v", err)
	}
	if narrow.TotalPublications >= base.TotalPublications {
		t.Fatalf("narrow window planned %d slots, base planned %d", narrow.TotalPublications, base.TotalPublications)
	}

	bad := store.DefaultSettings()
	bad.StartTime = "25:00"
	if _, err := svc.Forecast(testDay, false, &bad); err == nil {
		t.Fatal("expected invalid override to be rejected")
	}
}

func TestRunStartFromNowClampsToClock(t *testing.T) {
	// Clock fixed mid-window at 10:45; first slot must not precede it.
	svc, db := setupService(t, testDay.Add(10*time.Hour+45*time.Minute))
	enableScheduler(t, db)
	seedCompanyPost(t, db, "Alpha", false)

	p, err := svc.Run(testDay, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.TotalPublications == 0 {
		t.Fatal("expected slots in remaining window")
	}
	for _, a := range p.Slots {
		if a.Minute < 10*60+45 {
			t.Fatalf("slot at minute %d precedes the clock", a.Minute)
		}
	}
}

func TestRunOtherDayIgnoresClock(t *testing.T) {
	// startFromNow only applies when planning the current day.
	svc, db := setupService(t, testDay.Add(10*time.Hour+45*time.Minute))
	enableScheduler(t, db)
	seedCompanyPost(t, db, "Alpha", false)

	tomorrow := testDay.Add(24 * time.Hour)
	p, err := svc.Run(tomorrow, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(p.Slots) == 0 || p.Slots[0].Minute != 9*60 {
		t.Fatalf("expected tomorrow's plan to start at window open, got %+v", p.Slots)
	}
}
