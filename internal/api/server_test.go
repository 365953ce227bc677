package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/brandlens/visibility-scanner/internal/config"
	"github.com/brandlens/visibility-scanner/internal/models"
	"github.com/brandlens/visibility-scanner/internal/provider"
	"github.com/brandlens/visibility-scanner/internal/scan"
	"github.com/brandlens/visibility-scanner/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	cfg := &config.Config{
		DefaultPlan:  "enterprise",
		ScanCooldown: 7 * 24 * time.Hour,
	}
	st := store.NewMemoryStore()
	scanService := scan.NewService(cfg, st, provider.NewDeterministicProvider(), nil)
	return NewServer(cfg, st, scanService), st
}

func doRequest(server *Server, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func createBrand(t *testing.T, server *Server, userID string) string {
	t.Helper()
	recorder := doRequest(server, "POST", "/api/brands", userID, map[string]interface{}{
		"name":        "Acme",
		"industry":    "email marketing",
		"keywords":    []string{"automation"},
		"competitors": []string{"Zeta"},
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	return decodeBody(t, recorder)["id"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := testServer(t)

	recorder := doRequest(server, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "healthy", decodeBody(t, recorder)["status"])
}

func TestCreateBrand(t *testing.T) {
	server, st := testServer(t)

	brandID := createBrand(t, server, "user-1")

	brand, err := st.GetBrand(context.Background(), brandID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", brand.Name)
	assert.Equal(t, "user-1", brand.UserID)
}

func TestCreateBrand_Validation(t *testing.T) {
	server, _ := testServer(t)

	recorder := doRequest(server, "POST", "/api/brands", "user-1", map[string]interface{}{"name": "Acme"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(server, "POST", "/api/brands", "", map[string]interface{}{"name": "Acme", "industry": "crm"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestGetBrand_CrossUserLooksAbsent(t *testing.T) {
	server, _ := testServer(t)
	brandID := createBrand(t, server, "user-1")

	recorder := doRequest(server, "GET", "/api/brands/"+brandID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doRequest(server, "GET", "/api/brands/"+brandID, "user-1", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpdateBrand(t *testing.T) {
	server, st := testServer(t)
	brandID := createBrand(t, server, "user-1")

	recorder := doRequest(server, "PUT", "/api/brands/"+brandID, "user-1", map[string]interface{}{
		"competitors": []string{"Zeta", "Omega"},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	brand, err := st.GetBrand(context.Background(), brandID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Omega"}, brand.Competitors)
	// Fields absent from the request are untouched.
	assert.Equal(t, []string{"automation"}, brand.Keywords)
}

func TestStartScan_Accepted(t *testing.T) {
	server, _ := testServer(t)
	brandID := createBrand(t, server, "user-1")

	recorder := doRequest(server, "POST", "/api/brands/"+brandID+"/scan", "user-1", map[string]string{"scan_type": "quick"})
	require.Equal(t, http.StatusAccepted, recorder.Code)

	body := decodeBody(t, recorder)
	scanID := body["scan_id"].(string)
	assert.Equal(t, models.ScanStatusRunning, body["status"])

	require.Eventually(t, func() bool {
		progressRec := doRequest(server, "GET", "/api/scans/"+scanID+"/progress", "user-1", nil)
		if progressRec.Code != http.StatusOK {
			return false
		}
		var progress models.ScanProgress
		if err := json.Unmarshal(progressRec.Body.Bytes(), &progress); err != nil {
			return false
		}
		return progress.Status == models.ScanStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartScan_RateLimited(t *testing.T) {
	server, st := testServer(t)
	brandID := createBrand(t, server, "user-1")

	brand, err := st.GetBrand(context.Background(), brandID)
	require.NoError(t, err)
	lastScan := time.Now().Add(-time.Hour)
	brand.LastScanAt = &lastScan
	require.NoError(t, st.SaveBrand(context.Background(), brand))

	recorder := doRequest(server, "POST", "/api/brands/"+brandID+"/scan", "user-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.NotEmpty(t, decodeBody(t, recorder)["next_available"])
}

func TestStartScan_QuotaExceeded(t *testing.T) {
	server, _ := testServer(t)
	brandID := createBrand(t, server, "user-1")

	// The free plan's quota cannot cover a deep scan.
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/brands/"+brandID+"/scan",
		bytes.NewBufferString(`{"scan_type":"deep"}`))
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-Plan", "free")
	server.Router().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusPaymentRequired, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(10), body["scan_limit"])
	assert.Equal(t, float64(20), body["scan_cost"])
}

func TestStartScan_UnknownTierRejected(t *testing.T) {
	server, _ := testServer(t)
	brandID := createBrand(t, server, "user-1")

	recorder := doRequest(server, "POST", "/api/brands/"+brandID+"/scan", "user-1", map[string]string{"scan_type": "mega"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestScanProgress_Unknown(t *testing.T) {
	server, _ := testServer(t)

	recorder := doRequest(server, "GET", "/api/scans/missing/progress", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCompetitors_RequiresOwnership(t *testing.T) {
	server, _ := testServer(t)
	brandID := createBrand(t, server, "user-1")

	recorder := doRequest(server, "GET", "/api/competitors?brand_id="+brandID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doRequest(server, "GET", "/api/competitors?brand_id="+brandID, "user-1", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSourceDomains_Empty(t *testing.T) {
	server, _ := testServer(t)
	createBrand(t, server, "user-1")

	recorder := doRequest(server, "GET", "/api/sources/domains", "user-1", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(0), decodeBody(t, recorder)["total"])
}

// fakeArchive is an in-memory stand-in for the blob archive.
type fakeArchive struct {
	blobs map[string][]byte
}

func (f *fakeArchive) Store(filename string, data []byte) error {
	f.blobs[filename] = data
	return nil
}

func (f *fakeArchive) Retrieve(filename string) ([]byte, error) {
	data, ok := f.blobs[filename]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", filename)
	}
	return data, nil
}

func (f *fakeArchive) List(prefix string) ([]string, error) {
	var names []string
	for name := range f.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func archiveTestServer(t *testing.T) (*Server, *fakeArchive) {
	t.Helper()
	cfg := &config.Config{
		DefaultPlan:  "enterprise",
		ScanCooldown: 7 * 24 * time.Hour,
	}
	st := store.NewMemoryStore()
	archive := &fakeArchive{blobs: make(map[string][]byte)}
	scanService := scan.NewService(cfg, st, provider.NewDeterministicProvider(), archive)
	return NewServer(cfg, st, scanService), archive
}

func TestArchiveEndpoints(t *testing.T) {
	server, archive := archiveTestServer(t)
	brandID := createBrand(t, server, "user-1")

	name := "scans/" + brandID + "/2026-08-01-09-00-00-scan-1.json"
	record := []byte(`{"id":"scan-1","brand_id":"` + brandID + `"}`)
	require.NoError(t, archive.Store(name, record))

	recorder := doRequest(server, "GET", "/api/brands/"+brandID+"/archive", "user-1", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, name, body["records"].([]interface{})[0])

	recorder = doRequest(server, "GET", "/api/brands/"+brandID+"/archive?record="+url.QueryEscape(name), "user-1", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, string(record), recorder.Body.String())

	// Another user's view of the archive is a missing brand.
	recorder = doRequest(server, "GET", "/api/brands/"+brandID+"/archive", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestArchiveEndpoints_Disabled(t *testing.T) {
	server, _ := testServer(t)
	brandID := createBrand(t, server, "user-1")

	recorder := doRequest(server, "GET", "/api/brands/"+brandID+"/archive", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, decodeBody(t, recorder)["error"], "not configured")
}

func TestPlansEndpoint(t *testing.T) {
	server, _ := testServer(t)

	recorder := doRequest(server, "GET", "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	plans := decodeBody(t, recorder)["plans"].([]interface{})
	assert.Len(t, plans, 4)
}
