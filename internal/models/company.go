package models

import "time"

// Company is a tenant owning one or more promotional posts.
type Company struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PreferredTime string    `json:"preferred_time,omitempty"` // HH:MM, empty = none
	Premium       bool      `json:"premium"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Weight returns the fairness multiplier used by the rotation planner.
// Premium companies get a 1.5x share advantage over regular ones.
func (c *Company) Weight() int {
	if c.Premium {
		return 3
	}
	return 2
}
