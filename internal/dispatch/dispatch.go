// Package dispatch runs the delivery loop: on every tick it claims at
// most one due slot, hands it to the sender, and records the outcome.
// Fairness lives entirely in the planned schedule, so the loop stays
// deliberately simple. Only the pacing marker and the claim itself gate
// delivery here.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/delivery"
	"github.com/rotapost/rotapost/internal/history"
	"github.com/rotapost/rotapost/internal/metrics"
	"github.com/rotapost/rotapost/internal/models"
	"github.com/rotapost/rotapost/internal/store"
)

// Skip reasons reported in tick results and metrics.
const (
	SkipBusy     = "busy"
	SkipDisabled = "disabled"
	SkipPacing   = "pacing"
	SkipNoneDue  = "none_due"
)

// Result describes what a single tick did.
type Result struct {
	Dispatched bool   `json:"dispatched"`
	SlotID     int64  `json:"slot_id,omitempty"`
	PostID     int64  `json:"post_id,omitempty"`
	Company    string `json:"company,omitempty"`
	Skipped    string `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Config contains dispatcher configuration
type Config struct {
	TickInterval time.Duration
	SendTimeout  time.Duration
}

// Dispatcher drives scheduled delivery.
type Dispatcher struct {
	slots    *store.SlotRepository
	settings *store.SettingsRepository
	sender   delivery.Sender
	log      *history.Log
	clock    *clock.Clock
	cfg      Config
	logger   *slog.Logger

	busy   atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(slots *store.SlotRepository, settings *store.SettingsRepository, sender delivery.Sender, log *history.Log, clk *clock.Clock, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		slots:    slots,
		settings: settings,
		sender:   sender,
		log:      log,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With("component", "dispatch"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the tick loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("starting dispatcher", "tick_interval", d.cfg.TickInterval)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(d.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				d.logger.Debug("dispatcher stopped by context")
				return
			case <-d.stopCh:
				d.logger.Debug("dispatcher stopped by signal")
				return
			case <-ticker.C:
				d.Tick(ctx, false, history.TriggerScheduled)
			}
		}
	}()
}

// Stop stops the dispatcher gracefully. An in-flight tick finishes first.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher")
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// RunNow executes a single tick on behalf of an operator. force bypasses
// the enabled flag and the pacing gate, but never the claim itself.
func (d *Dispatcher) RunNow(ctx context.Context, force bool) *Result {
	return d.Tick(ctx, force, history.TriggerManual)
}

// Tick claims and delivers at most one due slot. Overlapping ticks are
// rejected rather than queued, so a slow send cannot pile up work.
func (d *Dispatcher) Tick(ctx context.Context, force bool, trigger history.Trigger) *Result {
	if !d.busy.CompareAndSwap(false, true) {
		metrics.IncDispatchSkipped(SkipBusy)
		return &Result{Skipped: SkipBusy}
	}
	defer d.busy.Store(false)

	start := time.Now()
	metrics.IncDispatchTicks()
	defer func() {
		metrics.ObserveDispatchDuration(time.Since(start).Seconds())
	}()

	settings, err := d.settings.Load()
	if err != nil {
		d.logger.Error("failed to load settings", "error", err)
		return &Result{Error: err.Error()}
	}
	if !settings.Enabled && !force {
		metrics.IncDispatchSkipped(SkipDisabled)
		return &Result{Skipped: SkipDisabled}
	}

	now := d.clock.Now()
	minInterval := time.Duration(settings.MinIntervalMinutes) * time.Minute

	// Pacing gate: restarts must not burst through overdue slots.
	if !force {
		lastSent, err := d.settings.LastSentAt()
		if err != nil {
			d.logger.Error("failed to load pacing marker", "error", err)
			return &Result{Error: err.Error()}
		}
		if !lastSent.IsZero() && now.Sub(lastSent) < minInterval {
			metrics.IncDispatchSkipped(SkipPacing)
			return &Result{Skipped: SkipPacing}
		}
	}

	d.housekeeping(now, minInterval)

	dayStart := d.clock.DayStart(now)
	dayEnd := d.clock.DayEnd(now)
	if counts, err := d.slots.StatusCounts(dayStart, dayEnd); err == nil {
		metrics.SetSlotGauges(counts[models.SlotPending], counts[models.SlotProcessing])
	}

	claimed, err := d.slots.ClaimNextDue(now, dayStart, dayEnd, d.clock.DayString(now))
	if err != nil {
		d.logger.Error("failed to claim slot", "error", err)
		return &Result{Error: err.Error()}
	}
	if claimed == nil {
		metrics.IncDispatchSkipped(SkipNoneDue)
		return &Result{Skipped: SkipNoneDue}
	}

	return d.deliver(ctx, claimed, now, trigger)
}

// housekeeping repairs schedule state before a claim. Failures are
// logged and skipped, never fatal to the tick.
func (d *Dispatcher) housekeeping(now time.Time, minInterval time.Duration) {
	if n, err := d.slots.CleanupOrphans(); err != nil {
		d.logger.Error("failed to clean up orphaned slots", "error", err)
	} else if n > 0 {
		d.logger.Info("cleaned up orphaned slots", "count", n)
	}

	staleAfter := 2 * minInterval
	if n, err := d.slots.ReclaimStale(now, staleAfter); err != nil {
		d.logger.Error("failed to reclaim stale claims", "error", err)
	} else if n > 0 {
		d.logger.Warn("reclaimed stale claims", "count", n, "stale_after", staleAfter)
		metrics.AddSlotsReclaimed(n)
	}

	if n, err := d.slots.ExpireStalePending(d.clock.DayStart(now)); err != nil {
		d.logger.Error("failed to expire stale pending slots", "error", err)
	} else if n > 0 {
		d.logger.Info("expired stale pending slots", "count", n)
		metrics.AddSlotsExpired(n)
	}

	if n, err := d.slots.InvalidatePending(d.clock.Location()); err != nil {
		d.logger.Error("failed to invalidate pending slots", "error", err)
	} else if n > 0 {
		d.logger.Info("invalidated pending slots", "count", n)
		metrics.AddSlotsInvalidated(n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, claimed *models.ClaimedSlot, now time.Time, trigger history.Trigger) *Result {
	logger := d.logger.With("slot_id", claimed.ID, "post_id", claimed.PostID, "company", claimed.CompanyName)
	logger.Debug("delivering slot", "scheduled_at", claimed.ScheduledAt)

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	res, sendErr := d.sender.Send(sendCtx, &delivery.Message{
		PostID:      claimed.PostID,
		CompanyName: claimed.CompanyName,
		Title:       claimed.PostTitle,
		Body:        claimed.PostBody,
	})
	cancel()

	entry := &history.Entry{
		SlotID:      claimed.ID,
		PostID:      claimed.PostID,
		CompanyID:   claimed.CompanyID,
		CompanyName: claimed.CompanyName,
		Trigger:     trigger,
		ScheduledAt: claimed.ScheduledAt,
	}

	if sendErr != nil {
		logger.Warn("delivery failed", "error", sendErr)

		if err := d.slots.Resolve(claimed.ID, models.SlotFailed, sendErr.Error(), now); err != nil {
			logger.Error("failed to mark slot failed", "error", err)
		}
		entry.Status = string(models.SlotFailed)
		entry.Error = sendErr.Error()
		if err := d.log.Append(entry); err != nil {
			logger.Error("failed to append history entry", "error", err)
		}
		metrics.IncPublicationsFailed(claimed.CompanyName)

		return &Result{
			SlotID:  claimed.ID,
			PostID:  claimed.PostID,
			Company: claimed.CompanyName,
			Error:   sendErr.Error(),
		}
	}

	if err := d.slots.Resolve(claimed.ID, models.SlotSent, "", now); err != nil {
		logger.Error("failed to mark slot sent", "error", err)
	}
	if err := d.settings.SetCursor(claimed.CursorAfter); err != nil {
		logger.Error("failed to advance rotation cursor", "error", err)
	}
	if err := d.settings.SetLastSentAt(now); err != nil {
		logger.Error("failed to update pacing marker", "error", err)
	}

	entry.Status = string(models.SlotSent)
	if res != nil {
		entry.MessageID = res.MessageID
		entry.ChatID = res.ChatID
	}
	if err := d.log.Append(entry); err != nil {
		logger.Error("failed to append history entry", "error", err)
	}
	metrics.IncPublicationsSent(claimed.CompanyName)

	logger.Info("publication delivered", "scheduled_at", claimed.ScheduledAt, "cursor", claimed.CursorAfter)
	return &Result{
		Dispatched: true,
		SlotID:     claimed.ID,
		PostID:     claimed.PostID,
		Company:    claimed.CompanyName,
	}
}
