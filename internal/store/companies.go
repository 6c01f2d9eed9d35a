package store

import (
	"database/sql"
	"time"

	"github.com/rotapost/rotapost/internal/models"
)

type CompanyRepository struct {
	db *DB
}

func NewCompanyRepository(db *DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(c *models.Company) error {
	now := time.Now()
	res, err := r.db.Exec(`
		INSERT INTO companies (name, preferred_time, premium, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.PreferredTime, c.Premium, now, now,
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	c.CreatedAt = now
	c.UpdatedAt = now
	return err
}

func (r *CompanyRepository) GetByID(id int64) (*models.Company, error) {
	c := &models.Company{}
	err := r.db.QueryRow(`
		SELECT id, name, COALESCE(preferred_time, '') as preferred_time, premium, created_at, updated_at
		FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.PreferredTime, &c.Premium, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CompanyRepository) List() ([]models.Company, error) {
	rows, err := r.db.Query(`
		SELECT id, name, COALESCE(preferred_time, '') as preferred_time, premium, created_at, updated_at
		FROM companies ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.PreferredTime, &c.Premium, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *CompanyRepository) Update(c *models.Company) error {
	c.UpdatedAt = time.Now()
	res, err := r.db.Exec(`
		UPDATE companies SET name = ?, preferred_time = ?, premium = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.PreferredTime, c.Premium, c.UpdatedAt, c.ID,
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

func (r *CompanyRepository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM companies WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
