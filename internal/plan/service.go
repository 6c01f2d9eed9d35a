// Package plan binds the pure rotation planner to the persisted stores:
// it assembles planner inputs from the repositories, and either commits
// the result as pending slots (Run) or returns it untouched (Forecast).
// Both paths share one code path, so a forecast is byte-identical to
// what a run would commit.
package plan

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/planner"
	"github.com/rotapost/rotapost/internal/store"
)

type Service struct {
	posts    *store.PostRepository
	slots    *store.SlotRepository
	settings *store.SettingsRepository
	clock    *clock.Clock
	logger   *slog.Logger
}

func NewService(posts *store.PostRepository, slots *store.SlotRepository, settings *store.SettingsRepository, clk *clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		posts:    posts,
		slots:    slots,
		settings: settings,
		clock:    clk,
		logger:   logger.With("component", "plan"),
	}
}

// Run plans the given day and persists the result, replacing any pending
// slots for that day.
func (s *Service) Run(day time.Time, startFromNow bool) (*planner.Plan, error) {
	p, err := s.build(day, startFromNow, nil)
	if err != nil {
		return nil, err
	}

	planned := make([]store.PlannedSlot, 0, len(p.Slots))
	for _, a := range p.Slots {
		planned = append(planned, store.PlannedSlot{
			PostID:      a.Post.ID,
			ScheduledAt: a.At,
			CursorAfter: a.CursorAfter,
			Preferred:   a.Preferred,
		})
	}

	dayStart := s.clock.DayStart(day)
	if err := s.slots.Regenerate(dayStart, s.clock.DayEnd(day), planned); err != nil {
		return nil, fmt.Errorf("failed to persist plan: %w", err)
	}

	s.logger.Info("plan committed",
		"day", s.clock.DayString(day),
		"publications", p.TotalPublications,
		"full_rotations", p.FullRotations,
		"start_cursor", p.StartCursor,
		"end_cursor", p.EndCursor,
	)
	return p, nil
}

// Forecast plans the given day without persisting anything. A non-nil
// override replaces the stored scheduler settings, letting operators
// preview configuration changes.
func (s *Service) Forecast(day time.Time, startFromNow bool, override *store.Settings) (*planner.Plan, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
	}
	return s.build(day, startFromNow, override)
}

func (s *Service) build(day time.Time, startFromNow bool, override *store.Settings) (*planner.Plan, error) {
	settings, err := s.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if override != nil {
		settings = *override
	}

	cfg, err := plannerConfig(settings)
	if err != nil {
		return nil, err
	}

	dayStr := s.clock.DayString(day)
	posts, err := s.posts.EligibleOn(dayStr)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible posts: %w", err)
	}

	counts, err := s.slots.SentCountsByCompany()
	if err != nil {
		return nil, fmt.Errorf("failed to load sent counts: %w", err)
	}

	cursor, err := s.settings.Cursor()
	if err != nil {
		return nil, fmt.Errorf("failed to load rotation cursor: %w", err)
	}

	now := s.clock.Now()
	opts := planner.Options{
		StartFromNow: startFromNow && s.clock.SameDay(day, now),
		NowMinute:    s.clock.MinuteOfDay(now),
		StartCursor:  cursor,
	}

	return planner.BuildDay(s.clock.DayStart(day), posts, counts, cfg, opts), nil
}

func plannerConfig(s store.Settings) (planner.Config, error) {
	start, err := clock.ParseHHMM(s.StartTime)
	if err != nil {
		return planner.Config{}, fmt.Errorf("invalid start_time: %w", err)
	}
	end, err := clock.ParseHHMM(s.EndTime)
	if err != nil {
		return planner.Config{}, fmt.Errorf("invalid end_time: %w", err)
	}
	return planner.Config{
		WindowStart: start,
		WindowEnd:   end,
		MinInterval: s.MinIntervalMinutes,
		RotationGap: s.RotationGapMinutes,
	}, nil
}
