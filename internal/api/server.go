// Package api exposes the scan pipeline over HTTP. Handlers are a thin
// translation layer: identity resolution, JSON codecs and status mapping
// live here, everything else is delegated to the scan service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/brandlens/visibility-scanner/internal/config"
	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/scan"
	"github.com/brandlens/visibility-scanner/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	config      *config.Config
	store       store.Store
	scanService *scan.Service
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, st store.Store, scanService *scan.Service) *Server {
	return &Server{config: cfg, store: st, scanService: scanService}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/api/plans", s.handlePlans).Methods("GET")
	router.HandleFunc("/api/brands", s.handleCreateBrand).Methods("POST")
	router.HandleFunc("/api/brands/{id}", s.handleGetBrand).Methods("GET")
	router.HandleFunc("/api/brands/{id}", s.handleUpdateBrand).Methods("PUT")
	router.HandleFunc("/api/brands/{id}/scan", s.handleStartScan).Methods("POST")
	router.HandleFunc("/api/brands/{id}/scans", s.handleListScans).Methods("GET")
	router.HandleFunc("/api/brands/{id}/archive", s.handleArchive).Methods("GET")
	router.HandleFunc("/api/scans/{id}/progress", s.handleScanProgress).Methods("GET")
	router.HandleFunc("/api/competitors", s.handleCompetitors).Methods("GET")
	router.HandleFunc("/api/sources/domains", s.handleSourceDomains).Methods("GET")
	router.HandleFunc("/api/sources/articles", s.handleSourceArticles).Methods("GET")

	return router
}

// identity resolves the already-authenticated caller. Authentication itself
// is an upstream concern; this service trusts the gateway-set headers.
func (s *Server) identity(r *http.Request) (models.Identity, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return models.Identity{}, false
	}
	planID := r.Header.Get("X-Plan")
	if planID == "" {
		planID = s.config.DefaultPlan
	}
	return models.Identity{UserID: userID, ScanLimit: models.PlanByID(planID).ScanQuota}, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": models.Plans})
}

type brandRequest struct {
	Name        string   `json:"name"`
	Industry    string   `json:"industry"`
	Keywords    []string `json:"keywords"`
	Competitors []string `json:"competitors"`
	Website     string   `json:"website"`
}

func (s *Server) handleCreateBrand(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	var req brandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Industry == "" {
		writeError(w, http.StatusBadRequest, "name and industry are required")
		return
	}

	now := time.Now()
	brand := &models.BrandProfile{
		ID:          uuid.NewString(),
		UserID:      identity.UserID,
		Name:        req.Name,
		Industry:    req.Industry,
		Keywords:    req.Keywords,
		Competitors: req.Competitors,
		Website:     req.Website,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveBrand(r.Context(), brand); err != nil {
		logrus.Errorf("Failed to create brand: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create brand")
		return
	}

	writeJSON(w, http.StatusCreated, brand)
}

func (s *Server) handleGetBrand(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	brand, err := s.store.GetBrand(r.Context(), mux.Vars(r)["id"])
	if err != nil || brand.UserID != identity.UserID {
		writeError(w, http.StatusNotFound, "brand not found")
		return
	}
	writeJSON(w, http.StatusOK, brand)
}

type brandUpdateRequest struct {
	Keywords    *[]string `json:"keywords"`
	Competitors *[]string `json:"competitors"`
}

// handleUpdateBrand updates the mutable parts of a brand profile: keywords
// and competitors. Name and industry are fixed at creation.
func (s *Server) handleUpdateBrand(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	brand, err := s.store.GetBrand(r.Context(), mux.Vars(r)["id"])
	if err != nil || brand.UserID != identity.UserID {
		writeError(w, http.StatusNotFound, "brand not found")
		return
	}

	var req brandUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Keywords != nil {
		brand.Keywords = *req.Keywords
	}
	if req.Competitors != nil {
		brand.Competitors = *req.Competitors
	}
	brand.UpdatedAt = time.Now()

	if err := s.store.SaveBrand(r.Context(), brand); err != nil {
		logrus.Errorf("Failed to update brand %s: %v", brand.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update brand")
		return
	}
	writeJSON(w, http.StatusOK, brand)
}

type scanRequest struct {
	Tier models.ScanTier `json:"scan_type"`
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	req := scanRequest{Tier: models.TierStandard}
	if r.Body != nil {
		// An empty body means a standard scan.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	progress, err := s.scanService.StartScan(r.Context(), identity, mux.Vars(r)["id"], req.Tier)
	if err != nil {
		var rateLimited *scan.RateLimitError
		var quota *scan.QuotaError
		switch {
		case errors.As(err, &rateLimited):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":          "brand was scanned recently",
				"next_available": rateLimited.NextAvailable.Format(time.RFC3339),
			})
		case errors.As(err, &quota):
			writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
				"error":      "scan quota exceeded",
				"scans_used": quota.Used,
				"scan_limit": quota.Limit,
				"scan_cost":  quota.Cost,
			})
		case errors.Is(err, scan.ErrUnknownTier):
			writeError(w, http.StatusBadRequest, "unknown scan type")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "brand not found")
		default:
			logrus.Errorf("Failed to start scan: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to start scan")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, progress)
}

func (s *Server) handleScanProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.scanService.GetProgress(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to load scan progress: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load scan progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	brandID := mux.Vars(r)["id"]
	brand, err := s.store.GetBrand(r.Context(), brandID)
	if err != nil || brand.UserID != identity.UserID {
		writeError(w, http.StatusNotFound, "brand not found")
		return
	}

	records, err := s.scanService.GetScanRecords(r.Context(), brandID, intQuery(r, "limit", 10))
	if err != nil {
		logrus.Errorf("Failed to list scans for brand %s: %v", brandID, err)
		writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"scans": records})
}

// handleArchive serves the blob archive of completed scans: the brand's
// archived record names by default, one raw record when ?record= is given.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}
	brandID := mux.Vars(r)["id"]

	if name := r.URL.Query().Get("record"); name != "" {
		data, err := s.scanService.ArchivedScanRecord(r.Context(), identity, brandID, name)
		if err != nil {
			s.writeArchiveError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logrus.Errorf("Failed to write archived record: %v", err)
		}
		return
	}

	names, err := s.scanService.ArchivedScanNames(r.Context(), identity, brandID)
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": names, "total": len(names)})
}

func (s *Server) writeArchiveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scan.ErrArchiveDisabled):
		writeError(w, http.StatusNotFound, "scan archive is not configured")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "archived record not found")
	default:
		logrus.Errorf("Archive request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "archive request failed")
	}
}

func (s *Server) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	ranking, err := s.scanService.CompetitorRanking(r.Context(), identity, r.URL.Query().Get("brand_id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "brand not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to build competitor ranking: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build competitor ranking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"competitors": ranking,
		"total":       len(ranking),
	})
}

func (s *Server) handleSourceDomains(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	domains, total, err := s.scanService.SourceDomains(r.Context(), identity,
		r.URL.Query().Get("brand_id"), intQuery(r, "page", 1), intQuery(r, "limit", 20))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "brand not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to list source domains: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list source domains")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"domains": domains, "total": total})
}

func (s *Server) handleSourceArticles(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	articles, total, err := s.scanService.SourceArticles(r.Context(), identity,
		r.URL.Query().Get("brand_id"), intQuery(r, "page", 1), intQuery(r, "limit", 20))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "brand not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to list source articles: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list source articles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"articles": articles, "total": total})
}

func intQuery(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
