package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rotapost/rotapost/internal/models"
)

// Error texts recorded on slots failed by housekeeping. Tests and
// operators grep for these.
const (
	errStaleClaim    = "reclaimed: dispatch did not resolve the claim in time"
	errDayPassed     = "expired: scheduled day passed without dispatch"
	errPostSuspended = "invalidated: post is inactive or outside its date range"
)

type SlotRepository struct {
	db *DB
}

func NewSlotRepository(db *DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// PlannedSlot is one assignment to persist during regeneration.
type PlannedSlot struct {
	PostID      int64
	ScheduledAt time.Time
	CursorAfter int
	Preferred   bool
}

// Regenerate replaces the pending slots within [dayStart, dayEnd) with
// the given plan in a single transaction. Slots that are processing,
// sent or failed are never touched, so regeneration cannot clobber
// in-flight or completed work.
func (r *SlotRepository) Regenerate(dayStart, dayEnd time.Time, planned []PlannedSlot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM slots
		WHERE status = ? AND scheduled_at >= ? AND scheduled_at < ?`,
		models.SlotPending, dayStart, dayEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to clear pending slots: %w", err)
	}

	now := time.Now()
	for _, p := range planned {
		_, err = tx.Exec(`
			INSERT INTO slots (post_id, scheduled_at, status, cursor_after, preferred, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.PostID, p.ScheduledAt, models.SlotPending, p.CursorAfter, p.Preferred, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}
	}

	return tx.Commit()
}

// ClaimNextDue atomically claims the earliest due pending slot within
// [dayStart, dayEnd) whose post is still eligible, flipping it to
// processing. Returns nil, nil when nothing is due. The conditional
// update re-checks the pending status, so of two concurrent callers at
// most one wins a given slot.
func (r *SlotRepository) ClaimNextDue(now, dayStart, dayEnd time.Time, day string) (*models.ClaimedSlot, error) {
	for {
		s := &models.ClaimedSlot{}
		err := r.db.QueryRow(`
			SELECT s.id, s.post_id, s.scheduled_at, s.status, COALESCE(s.error, '') as error,
				s.cursor_after, s.preferred, s.created_at,
				p.title, p.body, c.id, c.name
			FROM slots s
			JOIN posts p ON p.id = s.post_id
			JOIN companies c ON c.id = p.company_id
			WHERE s.status = ? AND s.scheduled_at <= ?
				AND s.scheduled_at >= ? AND s.scheduled_at < ?
				AND p.active = 1 AND p.start_date <= ? AND p.end_date >= ?
			ORDER BY s.scheduled_at, s.id
			LIMIT 1`,
			models.SlotPending, now, dayStart, dayEnd, day, day,
		).Scan(&s.ID, &s.PostID, &s.ScheduledAt, &s.Status, &s.Error,
			&s.CursorAfter, &s.Preferred, &s.CreatedAt,
			&s.PostTitle, &s.PostBody, &s.CompanyID, &s.CompanyName)

		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		claimedAt := now
		res, err := r.db.Exec(`
			UPDATE slots SET status = ?, claimed_at = ?
			WHERE id = ? AND status = ?`,
			models.SlotProcessing, claimedAt, s.ID, models.SlotPending,
		)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Lost the race for this slot; try the next one.
			continue
		}

		s.Status = models.SlotProcessing
		s.ClaimedAt = &claimedAt
		return s, nil
	}
}

// Resolve sets a terminal status and clears the claim timestamp. errText
// is recorded on failure only.
func (r *SlotRepository) Resolve(id int64, status models.SlotStatus, errText string, now time.Time) error {
	if status != models.SlotSent && status != models.SlotFailed {
		return fmt.Errorf("resolve to non-terminal status %q", status)
	}

	var sentAt any
	if status == models.SlotSent {
		sentAt = now
		errText = ""
	}

	res, err := r.db.Exec(`
		UPDATE slots SET status = ?, error = ?, sent_at = ?, claimed_at = NULL
		WHERE id = ?`,
		status, errText, sentAt, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ReclaimStale resets processing slots whose claim is older than the
// timeout back to pending. A stale claim means dispatch crashed before
// resolving; the slot becomes claimable again without operator help.
func (r *SlotRepository) ReclaimStale(now time.Time, timeout time.Duration) (int64, error) {
	cutoff := now.Add(-timeout)
	res, err := r.db.Exec(`
		UPDATE slots SET status = ?, claimed_at = NULL, error = ?
		WHERE status = ? AND claimed_at < ?`,
		models.SlotPending, errStaleClaim, models.SlotProcessing, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireStalePending fails pending slots whose scheduled day lies fully
// before the given day start, keeping the backlog from growing without
// bound when windows are missed.
func (r *SlotRepository) ExpireStalePending(dayStart time.Time) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE slots SET status = ?, error = ?
		WHERE status = ? AND scheduled_at < ?`,
		models.SlotFailed, errDayPassed, models.SlotPending, dayStart,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InvalidatePending fails pending slots whose post has become inactive
// or whose scheduled day fell outside the post's date range.
func (r *SlotRepository) InvalidatePending(loc *time.Location) (int64, error) {
	rows, err := r.db.Query(`
		SELECT s.id, s.scheduled_at, p.active, p.start_date, p.end_date
		FROM slots s
		JOIN posts p ON p.id = s.post_id
		WHERE s.status = ?`,
		models.SlotPending,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var (
			id          int64
			scheduledAt time.Time
			active      bool
			start, end  string
		)
		if err := rows.Scan(&id, &scheduledAt, &active, &start, &end); err != nil {
			return 0, err
		}
		day := scheduledAt.In(loc).Format("2006-01-02")
		if !active || day < start || day > end {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var count int64
	for _, id := range stale {
		res, err := r.db.Exec(`
			UPDATE slots SET status = ?, error = ?
			WHERE id = ? AND status = ?`,
			models.SlotFailed, errPostSuspended, id, models.SlotPending,
		)
		if err != nil {
			return count, err
		}
		n, _ := res.RowsAffected()
		count += n
	}
	return count, nil
}

// CleanupOrphans deletes slots whose post no longer exists.
func (r *SlotRepository) CleanupOrphans() (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM slots WHERE post_id NOT IN (SELECT id FROM posts)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByDay returns all slots scheduled within [dayStart, dayEnd) in
// schedule order.
func (r *SlotRepository) ListByDay(dayStart, dayEnd time.Time) ([]models.Slot, error) {
	rows, err := r.db.Query(`
		SELECT id, post_id, scheduled_at, status, COALESCE(error, '') as error,
			cursor_after, preferred, created_at, sent_at, claimed_at
		FROM slots
		WHERE scheduled_at >= ? AND scheduled_at < ?
		ORDER BY scheduled_at, id`,
		dayStart, dayEnd,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []models.Slot{}
	for rows.Next() {
		var s models.Slot
		if err := rows.Scan(&s.ID, &s.PostID, &s.ScheduledAt, &s.Status, &s.Error,
			&s.CursorAfter, &s.Preferred, &s.CreatedAt, &s.SentAt, &s.ClaimedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// GetByID returns a single slot.
func (r *SlotRepository) GetByID(id int64) (*models.Slot, error) {
	s := &models.Slot{}
	err := r.db.QueryRow(`
		SELECT id, post_id, scheduled_at, status, COALESCE(error, '') as error,
			cursor_after, preferred, created_at, sent_at, claimed_at
		FROM slots WHERE id = ?`, id,
	).Scan(&s.ID, &s.PostID, &s.ScheduledAt, &s.Status, &s.Error,
		&s.CursorAfter, &s.Preferred, &s.CreatedAt, &s.SentAt, &s.ClaimedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// StatusCounts returns the number of slots per status within
// [dayStart, dayEnd).
func (r *SlotRepository) StatusCounts(dayStart, dayEnd time.Time) (map[models.SlotStatus]int64, error) {
	rows, err := r.db.Query(`
		SELECT status, COUNT(*)
		FROM slots
		WHERE scheduled_at >= ? AND scheduled_at < ?
		GROUP BY status`,
		dayStart, dayEnd,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SlotStatus]int64)
	for rows.Next() {
		var status models.SlotStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// SentCountsByCompany returns the historical count of sent slots per
// company, the planner's fairness memory.
func (r *SlotRepository) SentCountsByCompany() (map[int64]int, error) {
	rows, err := r.db.Query(`
		SELECT p.company_id, COUNT(*)
		FROM slots s
		JOIN posts p ON p.id = s.post_id
		WHERE s.status = ?
		GROUP BY p.company_id`,
		models.SlotSent,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var companyID int64
		var n int
		if err := rows.Scan(&companyID, &n); err != nil {
			return nil, err
		}
		counts[companyID] = n
	}
	return counts, rows.Err()
}
