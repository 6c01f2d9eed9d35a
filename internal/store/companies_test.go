package store

import (
	"errors"
	"testing"

	"github.com/rotapost/rotapost/internal/models"
)

func TestCompanyCRUD(t *testing.T) {
	db := setupTestDB(t)
	companies := NewCompanyRepository(db)

	c := &models.Company{Name: "Beta", PreferredTime: "09:30", Premium: true}
	if err := companies.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("create did not assign an id")
	}

	got, err := companies.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Beta" || got.PreferredTime != "09:30" || !got.Premium {
		t.Fatalf("got %+v", got)
	}
	if got.Weight() != 3 {
		t.Errorf("premium weight = %d, want 3", got.Weight())
	}

	got.Name = "Beta Media"
	got.Premium = false
	if err := companies.Update(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = companies.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Name != "Beta Media" || got.Premium {
		t.Fatalf("after update got %+v", got)
	}
	if got.Weight() != 2 {
		t.Errorf("regular weight = %d, want 2", got.Weight())
	}

	if err := companies.Delete(c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := companies.GetByID(c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
	if err := companies.Update(got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing = %v, want ErrNotFound", err)
	}
}

func TestCompanyListOrder(t *testing.T) {
	db := setupTestDB(t)
	companies := NewCompanyRepository(db)

	for _, name := range []string{"zeta", "Alpha", "beta"} {
		if err := companies.Create(&models.Company{Name: name}); err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
	}

	all, err := companies.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Alpha", "beta", "zeta"}
	if len(all) != len(want) {
		t.Fatalf("list = %d companies, want %d", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("list[%d] = %q, want %q", i, all[i].Name, name)
		}
	}
}
