package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/plan"
	"github.com/rotapost/rotapost/internal/planner"
	"github.com/rotapost/rotapost/internal/store"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a day's publication schedule",
	RunE:  runPlan,
}

var (
	planDate     string
	planForecast bool
	planFromNow  bool
)

func init() {
	planCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	planCmd.Flags().StringVar(&planDate, "date", "", "Day to plan (YYYY-MM-DD, default today)")
	planCmd.Flags().BoolVar(&planForecast, "forecast", false, "Preview without persisting slots")
	planCmd.Flags().BoolVar(&planFromNow, "from-now", false, "Skip window minutes already in the past")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	clk, err := clock.New(cfg.Scheduler.Timezone)
	if err != nil {
		return err
	}

	day := clk.Today()
	if planDate != "" {
		day, err = clk.ParseDay(planDate)
		if err != nil {
			return err
		}
	}

	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := plan.NewService(
		store.NewPostRepository(db),
		store.NewSlotRepository(db),
		store.NewSettingsRepository(db),
		clk, logger,
	)

	run := svc.Run
	if planForecast {
		run = func(day time.Time, fromNow bool) (*planner.Plan, error) {
			return svc.Forecast(day, fromNow, nil)
		}
	}
	p, err := run(day, planFromNow)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d publications, %d full rotations, cursor %d -> %d\n",
		clk.DayString(day), p.TotalPublications, p.FullRotations, p.StartCursor, p.EndCursor)
	for _, a := range p.Slots {
		mark := " "
		if a.Preferred {
			mark = "*"
		}
		fmt.Printf("  %s %s %-20s %s\n", a.At.Format(time.TimeOnly), mark, a.Post.CompanyName, a.Post.Title)
	}
	if planForecast {
		fmt.Println("(forecast only, nothing persisted)")
	}
	return nil
}
