package store

import (
	"database/sql"
	"time"

	"github.com/rotapost/rotapost/internal/models"
)

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(p *models.Post) error {
	now := time.Now()
	res, err := r.db.Exec(`
		INSERT INTO posts (company_id, title, body, active, start_date, end_date, preferred_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CompanyID, p.Title, p.Body, p.Active, p.StartDate, p.EndDate, p.PreferredTime, now, now,
	)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	p.CreatedAt = now
	p.UpdatedAt = now
	return err
}

func (r *PostRepository) GetByID(id int64) (*models.Post, error) {
	p := &models.Post{}
	err := r.db.QueryRow(`
		SELECT id, company_id, title, body, active, start_date, end_date,
			COALESCE(preferred_time, '') as preferred_time, created_at, updated_at
		FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.CompanyID, &p.Title, &p.Body, &p.Active, &p.StartDate, &p.EndDate,
		&p.PreferredTime, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) List() ([]models.Post, error) {
	rows, err := r.db.Query(`
		SELECT id, company_id, title, body, active, start_date, end_date,
			COALESCE(preferred_time, '') as preferred_time, created_at, updated_at
		FROM posts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *PostRepository) Update(p *models.Post) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.Exec(`
		UPDATE posts SET company_id = ?, title = ?, body = ?, active = ?,
			start_date = ?, end_date = ?, preferred_time = ?, updated_at = ?
		WHERE id = ?`,
		p.CompanyID, p.Title, p.Body, p.Active, p.StartDate, p.EndDate, p.PreferredTime, p.UpdatedAt, p.ID,
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

func (r *PostRepository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// EligibleOn returns all posts schedulable on the given YYYY-MM-DD day,
// joined with the owning company's name, premium flag and preferred time.
// The effective preferred time is the post's own override when set, else
// the company default.
func (r *PostRepository) EligibleOn(day string) ([]models.EligiblePost, error) {
	rows, err := r.db.Query(`
		SELECT p.id, p.company_id, p.title, p.body, p.active, p.start_date, p.end_date,
			COALESCE(p.preferred_time, '') as preferred_time,
			p.created_at, p.updated_at,
			c.name, c.premium,
			COALESCE(NULLIF(p.preferred_time, ''), c.preferred_time, '') as effective_time
		FROM posts p
		JOIN companies c ON c.id = p.company_id
		WHERE p.active = 1 AND p.start_date <= ? AND p.end_date >= ?
		ORDER BY p.id`, day, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.EligiblePost{}
	for rows.Next() {
		var p models.EligiblePost
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Title, &p.Body, &p.Active, &p.StartDate, &p.EndDate,
			&p.PreferredTime, &p.CreatedAt, &p.UpdatedAt,
			&p.CompanyName, &p.Premium, &p.EffectiveTime); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Title, &p.Body, &p.Active, &p.StartDate, &p.EndDate,
			&p.PreferredTime, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
