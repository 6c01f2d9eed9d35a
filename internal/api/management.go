package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/models"
	"github.com/rotapost/rotapost/internal/store"
)

// CompanyRequest is the request body for company create and update
type CompanyRequest struct {
	Name          string `json:"name"`
	PreferredTime string `json:"preferred_time,omitempty"`
	Premium       bool   `json:"premium"`
}

func (req *CompanyRequest) validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.PreferredTime != "" {
		if _, err := clock.ParseHHMM(req.PreferredTime); err != nil {
			return err
		}
	}
	return nil
}

// PostRequest is the request body for post create and update
type PostRequest struct {
	CompanyID     int64  `json:"company_id"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	Active        bool   `json:"active"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	PreferredTime string `json:"preferred_time,omitempty"`
}

func (req *PostRequest) validate() error {
	if req.CompanyID == 0 {
		return errors.New("company_id is required")
	}
	if req.Title == "" {
		return errors.New("title is required")
	}
	if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
		return errors.New("start_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", req.EndDate); err != nil {
		return errors.New("end_date must be YYYY-MM-DD")
	}
	if req.EndDate < req.StartDate {
		return errors.New("end_date must not precede start_date")
	}
	if req.PreferredTime != "" {
		if _, err := clock.ParseHHMM(req.PreferredTime); err != nil {
			return err
		}
	}
	return nil
}

// Company handlers

// handleCompaniesList handles GET /api/v1/companies
func (s *Server) handleCompaniesList(w http.ResponseWriter, r *http.Request) {
	companies, err := s.companies.List()
	if err != nil {
		s.logger.Error("failed to list companies", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

// handleCompaniesCreate handles POST /api/v1/companies
func (s *Server) handleCompaniesCreate(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := &models.Company{
		Name:          req.Name,
		PreferredTime: req.PreferredTime,
		Premium:       req.Premium,
	}
	if err := s.companies.Create(c); err != nil {
		s.logger.Error("failed to create company", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create company")
		return
	}

	s.logger.Info("company created", "id", c.ID, "name", c.Name, "premium", c.Premium)
	s.sendJSON(w, http.StatusCreated, c)
}

// handleCompaniesGet handles GET /api/v1/companies/{id}
func (s *Server) handleCompaniesGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	c, err := s.companies.GetByID(id)
	if err != nil {
		s.notFoundOr500(w, err, "company")
		return
	}
	s.sendJSON(w, http.StatusOK, c)
}

// handleCompaniesUpdate handles PUT /api/v1/companies/{id}
func (s *Server) handleCompaniesUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := &models.Company{
		ID:            id,
		Name:          req.Name,
		PreferredTime: req.PreferredTime,
		Premium:       req.Premium,
	}
	if err := s.companies.Update(c); err != nil {
		s.notFoundOr500(w, err, "company")
		return
	}
	s.sendJSON(w, http.StatusOK, c)
}

// handleCompaniesDelete handles DELETE /api/v1/companies/{id}
func (s *Server) handleCompaniesDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.companies.Delete(id); err != nil {
		s.notFoundOr500(w, err, "company")
		return
	}
	s.logger.Info("company deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Post handlers

// handlePostsList handles GET /api/v1/posts
func (s *Server) handlePostsList(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List()
	if err != nil {
		s.logger.Error("failed to list posts", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list posts")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// handlePostsCreate handles POST /api/v1/posts
func (s *Server) handlePostsCreate(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.companies.GetByID(req.CompanyID); err != nil {
		s.sendError(w, http.StatusBadRequest, "company_id does not exist")
		return
	}

	p := &models.Post{
		CompanyID:     req.CompanyID,
		Title:         req.Title,
		Body:          req.Body,
		Active:        req.Active,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		PreferredTime: req.PreferredTime,
	}
	if err := s.posts.Create(p); err != nil {
		s.logger.Error("failed to create post", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	s.logger.Info("post created", "id", p.ID, "company_id", p.CompanyID, "title", p.Title)
	s.sendJSON(w, http.StatusCreated, p)
}

// handlePostsGet handles GET /api/v1/posts/{id}
func (s *Server) handlePostsGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	p, err := s.posts.GetByID(id)
	if err != nil {
		s.notFoundOr500(w, err, "post")
		return
	}
	s.sendJSON(w, http.StatusOK, p)
}

// handlePostsUpdate handles PUT /api/v1/posts/{id}
func (s *Server) handlePostsUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &models.Post{
		ID:            id,
		CompanyID:     req.CompanyID,
		Title:         req.Title,
		Body:          req.Body,
		Active:        req.Active,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		PreferredTime: req.PreferredTime,
	}
	if err := s.posts.Update(p); err != nil {
		s.notFoundOr500(w, err, "post")
		return
	}
	s.sendJSON(w, http.StatusOK, p)
}

// handlePostsDelete handles DELETE /api/v1/posts/{id}
func (s *Server) handlePostsDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.posts.Delete(id); err != nil {
		s.notFoundOr500(w, err, "post")
		return
	}
	s.logger.Info("post deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.sendError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error, kind string) {
	if errors.Is(err, store.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, kind+" not found")
		return
	}
	s.logger.Error("repository error", "kind", kind, "error", err)
	s.sendError(w, http.StatusInternalServerError, "Internal error")
}
