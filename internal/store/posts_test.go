package store

import (
	"errors"
	"testing"

	"github.com/rotapost/rotapost/internal/models"
)

func TestPostCRUD(t *testing.T) {
	db := setupTestDB(t)
	companyID, postID := seedPost(t, db, "Alpha", false)
	posts := NewPostRepository(db)

	p, err := posts.GetByID(postID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.CompanyID != companyID || p.Title != "Alpha promo" || !p.Active {
		t.Fatalf("got %+v", p)
	}

	p.Title = "Alpha summer promo"
	p.Active = false
	p.PreferredTime = "11:30"
	if err := posts.Update(p); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, err = posts.GetByID(postID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if p.Title != "Alpha summer promo" || p.Active || p.PreferredTime != "11:30" {
		t.Fatalf("after update got %+v", p)
	}

	all, err := posts.List()
	if err != nil || len(all) != 1 {
		t.Fatalf("list = %d posts (%v)", len(all), err)
	}

	if err := posts.Delete(postID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := posts.GetByID(postID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
	if err := posts.Delete(postID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete = %v, want ErrNotFound", err)
	}
	if err := posts.Update(p); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing = %v, want ErrNotFound", err)
	}
}

func TestEligibleOn(t *testing.T) {
	db := setupTestDB(t)
	companies := NewCompanyRepository(db)
	posts := NewPostRepository(db)

	c := &models.Company{Name: "Alpha", PreferredTime: "10:00", Premium: true}
	if err := companies.Create(c); err != nil {
		t.Fatalf("create company: %v", err)
	}

	mk := func(title, start, end, preferred string, active bool) {
		t.Helper()
		p := &models.Post{
			CompanyID: c.ID, Title: title, Body: "b", Active: active,
			StartDate: start, EndDate: end, PreferredTime: preferred,
		}
		if err := posts.Create(p); err != nil {
			t.Fatalf("create post %q: %v", title, err)
		}
	}

	mk("inherits company time", "2025-06-01", "2025-06-30", "", true)
	mk("own override", "2025-06-01", "2025-06-30", "14:45", true)
	mk("inactive", "2025-06-01", "2025-06-30", "", false)
	mk("expired", "2025-01-01", "2025-06-15", "", true)
	mk("not started", "2025-06-17", "2025-06-30", "", true)

	eligible, err := posts.EligibleOn("2025-06-16")
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("eligible = %d posts, want 2", len(eligible))
	}

	if eligible[0].Title != "inherits company time" || eligible[0].EffectiveTime != "10:00" {
		t.Errorf("first = %q effective %q", eligible[0].Title, eligible[0].EffectiveTime)
	}
	if eligible[1].Title != "own override" || eligible[1].EffectiveTime != "14:45" {
		t.Errorf("second = %q effective %q", eligible[1].Title, eligible[1].EffectiveTime)
	}
	for _, e := range eligible {
		if e.CompanyName != "Alpha" || !e.Premium {
			t.Errorf("company fields = %q premium %v", e.CompanyName, e.Premium)
		}
	}

	// Boundary days are inclusive on both ends.
	edge, err := posts.EligibleOn("2025-06-15")
	if err != nil {
		t.Fatalf("eligible on boundary: %v", err)
	}
	var found bool
	for _, e := range edge {
		if e.Title == "expired" {
			found = true
		}
	}
	if !found {
		t.Error("post should still be eligible on its end date")
	}
}

func TestDeleteCompanyCascadesPosts(t *testing.T) {
	db := setupTestDB(t)
	companyID, postID := seedPost(t, db, "Alpha", false)

	if err := NewCompanyRepository(db).Delete(companyID); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	if _, err := NewPostRepository(db).GetByID(postID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post after company delete = %v, want ErrNotFound", err)
	}
}
