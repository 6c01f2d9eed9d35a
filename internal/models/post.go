package models

import "time"

// Post is a schedulable promotional campaign owned by a company.
// StartDate and EndDate are inclusive calendar days in YYYY-MM-DD form.
type Post struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"company_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Active        bool      `json:"active"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	PreferredTime string    `json:"preferred_time,omitempty"` // HH:MM override, empty = inherit company
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EligibleOn reports whether the post may be scheduled on the given
// YYYY-MM-DD day. Date strings compare lexically in this format.
func (p *Post) EligibleOn(day string) bool {
	return p.Active && p.StartDate <= day && p.EndDate >= day
}

// EligiblePost is a post annotated with its owning company, as returned
// by the eligibility query consumed by the rotation planner.
type EligiblePost struct {
	Post
	CompanyName   string `json:"company_name"`
	Premium       bool   `json:"premium"`
	EffectiveTime string `json:"effective_time,omitempty"` // post override, else company preferred
}
