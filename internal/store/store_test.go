package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rotapost/rotapost/internal/models"
)

// setupTestDB creates a migrated sqlite database in a temp dir.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "rotapost.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedPost creates a company and one active post, returning both ids.
func seedPost(t *testing.T, db *DB, company string, premium bool) (int64, int64) {
	t.Helper()

	companies := NewCompanyRepository(db)
	posts := NewPostRepository(db)

	c := &models.Company{Name: company, Premium: premium}
	if err := companies.Create(c); err != nil {
		t.Fatalf("failed to create company: %v", err)
	}

	p := &models.Post{
		CompanyID: c.ID,
		Title:     company + " promo",
		Body:      "Visit " + company + " today!",
		Active:    true,
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
	}
	if err := posts.Create(p); err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return c.ID, p.ID
}

var testDayStart = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

func testDayEnd() time.Time { return testDayStart.AddDate(0, 0, 1) }

func at(hour, minute int) time.Time {
	return testDayStart.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
