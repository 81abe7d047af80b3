package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dfryer1193/goplaces/api"
	"github.com/dfryer1193/goplaces/internal/events"
	"github.com/dfryer1193/goplaces/places/application"
	"github.com/dfryer1193/goplaces/places/assets"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/places/geo"
	"github.com/dfryer1193/goplaces/places/persistence"
	"github.com/dfryer1193/goplaces/shared/cloudinary"
	"github.com/dfryer1193/goplaces/shared/db/sqlite"
	"github.com/gin-gonic/gin"
)

const testBase = "https://res.cloudinary.com/demo/image/upload/v1/cambodia-travel/"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUploader struct{}

func (stubUploader) Upload(ctx context.Context, data []byte, filename, folder string) (domain.ImageReference, error) {
	if strings.HasPrefix(filename, "bad") {
		return "", &domain.StoreError{Op: "upload", StatusCode: http.StatusBadRequest, Err: errors.New("Invalid image file")}
	}
	return domain.ImageReference(testBase + strings.TrimSuffix(filename, ".jpg") + ".jpg"), nil
}

type stubDeleter struct {
	mu    sync.Mutex
	err   error
	calls [][]string
}

func (d *stubDeleter) Delete(ctx context.Context, ids []string) (map[string]domain.DeleteOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, ids)
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]domain.DeleteOutcome, len(ids))
	for _, id := range ids {
		out[id] = domain.OutcomeDeleted
	}
	return out, nil
}

type passthrough struct{}

func (passthrough) Resample(data []byte) ([]byte, error) { return data, nil }

type testServer struct {
	router  *gin.Engine
	deleter *stubDeleter
	svc     *application.PlaceService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(t.TempDir(), "rest.db")})
	if err := database.Connect(); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	deleter := &stubDeleter{}
	orchestrator := application.NewUploadOrchestrator(stubUploader{}, passthrough{}, assets.DefaultFolder)
	svc := application.NewPlaceService(
		persistence.NewSQLitePlaceRepository(database.DB()),
		deleter,
		assets.NewCodec(assets.DefaultFolder),
		orchestrator,
	)
	t.Cleanup(func() { svc.Close() })

	router := gin.New()
	NewApi(router, svc, events.NewHub(), Options{
		Signer: deleter,
		Nearby: geo.NearbyOptions{Limit: 6, MaxRadiusKm: 1000},
	})
	return &testServer{router: router, deleter: deleter, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func floatPtr(f float64) *float64 { return &f }

func (s *testServer) createPlace(t *testing.T, proto api.PlaceProto) api.Place {
	t.Helper()
	w := s.do(t, http.MethodPost, "/admin/v1/places", proto)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	return decode[api.Place](t, w)
}

func TestPlaces_CreateGetSearch(t *testing.T) {
	s := newTestServer(t)
	angkor := s.createPlace(t, api.PlaceProto{
		NameEN:     "Angkor Wat",
		ProvinceEN: "Siem Reap",
		Keywords:   []string{"temple"},
		Images:     []string{testBase + "angkor.jpg"},
	})
	s.createPlace(t, api.PlaceProto{NameEN: "Kep Beach", ProvinceEN: "Kep"})

	w := s.do(t, http.MethodGet, "/places/v1/"+angkor.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[api.Place](t, w)
	if len(got.Images) != 1 {
		t.Fatalf("images = %v, want 1", got.Images)
	}
	if !strings.Contains(got.Images[0].Card, assets.CardTransform) {
		t.Errorf("card url %q missing transform", got.Images[0].Card)
	}
	if got.Images[0].URL != testBase+"angkor.jpg" {
		t.Errorf("stored url altered: %q", got.Images[0].URL)
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all", query: "", want: 2},
		{name: "province", query: "?province=siem%20reap", want: 1},
		{name: "keyword", query: "?q=TEMPLE", want: 1},
		{name: "no match", query: "?q=zzz", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/places/v1/"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if got := decode[[]api.Place](t, w); len(got) != tt.want {
				t.Errorf("got %d places, want %d", len(got), tt.want)
			}
		})
	}
}

func TestPlaces_Errors(t *testing.T) {
	s := newTestServer(t)
	p := s.createPlace(t, api.PlaceProto{NameEN: "Bokor"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "unknown place", method: http.MethodGet, path: "/places/v1/missing", want: http.StatusNotFound},
		{name: "nameless place", method: http.MethodPost, path: "/admin/v1/places", body: api.PlaceProto{ProvinceEN: "Kampot"}, want: http.StatusBadRequest},
		{name: "bad nearby limit", method: http.MethodGet, path: "/places/v1/" + p.ID + "/nearby?limit=-1", want: http.StatusBadRequest},
		{name: "bad nearby radius", method: http.MethodGet, path: "/places/v1/" + p.ID + "/nearby?radius=abc", want: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodGet, path: "/admin/v1/sessions/nope", want: http.StatusNotFound},
		{name: "remove without url", method: http.MethodDelete, path: "/admin/v1/sessions/nope/images", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do(t, tt.method, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestPlaces_Nearby(t *testing.T) {
	s := newTestServer(t)
	ref := s.createPlace(t, api.PlaceProto{NameEN: "Phnom Penh", Latitude: floatPtr(11.5564), Longitude: floatPtr(104.9282)})
	s.createPlace(t, api.PlaceProto{NameEN: "Kep", Latitude: floatPtr(10.4829), Longitude: floatPtr(104.3167)})
	s.createPlace(t, api.PlaceProto{NameEN: "Siem Reap", Latitude: floatPtr(13.3671), Longitude: floatPtr(103.8448)})
	s.createPlace(t, api.PlaceProto{NameEN: "Nowhere"})

	w := s.do(t, http.MethodGet, "/places/v1/"+ref.ID+"/nearby", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decode[[]api.NearbyPlace](t, w)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Place.NameEN != "Kep" || got[0].DistanceKm > got[1].DistanceKm {
		t.Errorf("unexpected ordering: %+v", got)
	}

	w = s.do(t, http.MethodGet, "/places/v1/"+ref.ID+"/nearby?radius=200", nil)
	if got := decode[[]api.NearbyPlace](t, w); len(got) != 1 {
		t.Errorf("radius filter returned %d results, want 1", len(got))
	}
}

func uploadRequest(t *testing.T, path string, names ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write([]byte("image bytes for " + name))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSessions_UploadRemoveSave(t *testing.T) {
	s := newTestServer(t)
	p := s.createPlace(t, api.PlaceProto{
		NameEN: "Bayon",
		Images: []string{testBase + "old1.jpg", testBase + "old2.jpg"},
	})

	w := s.do(t, http.MethodPost, "/admin/v1/places/"+p.ID+"/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d", w.Code)
	}
	session := decode[api.Session](t, w)
	base := "/admin/v1/sessions/" + session.ID

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, base+"/images", "new1.jpg", "bad.jpg"))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	upload := decode[api.UploadResult](t, w)
	if len(upload.Tasks) != 2 {
		t.Fatalf("tasks = %+v", upload.Tasks)
	}
	states := map[string]string{}
	for _, task := range upload.Tasks {
		states[task.Name] = task.State
	}
	if states["new1.jpg"] != "succeeded" || states["bad.jpg"] != "failed" {
		t.Errorf("task states = %v", states)
	}
	if len(upload.Working) != 3 {
		t.Errorf("working = %v, want 3 entries", upload.Working)
	}

	w = s.do(t, http.MethodDelete, base+"/images?url="+testBase+"missing.jpg", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("removing an unknown image: status = %d, want 404", w.Code)
	}

	w = s.do(t, http.MethodDelete, base+"/images?url="+testBase+"old1.jpg", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("remove status = %d", w.Code)
	}

	if w := s.do(t, http.MethodDelete, base+"/tasks", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear tasks status = %d", w.Code)
	}

	w = s.do(t, http.MethodPost, base+"/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}
	saved := decode[api.SaveResult](t, w)
	if len(saved.Images) != 2 {
		t.Errorf("saved images = %v", saved.Images)
	}
	if saved.Deleted["cambodia-travel/old1"] != "ok" {
		t.Errorf("deleted = %v, want old1 reconciled", saved.Deleted)
	}

	if w := s.do(t, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Errorf("session still open after save: status = %d", w.Code)
	}

	got := decode[api.Place](t, s.do(t, http.MethodGet, "/places/v1/"+p.ID, nil))
	if len(got.Images) != 2 || got.Images[1].URL != testBase+"new1.jpg" {
		t.Errorf("persisted images = %+v", got.Images)
	}
}

func TestSessions_SaveReportsCleanupFailure(t *testing.T) {
	s := newTestServer(t)
	p := s.createPlace(t, api.PlaceProto{NameEN: "Preah Vihear", Images: []string{testBase + "a.jpg"}})
	session := decode[api.Session](t, s.do(t, http.MethodPost, "/admin/v1/places/"+p.ID+"/sessions", nil))
	base := "/admin/v1/sessions/" + session.ID

	s.do(t, http.MethodDelete, base+"/images?url="+testBase+"a.jpg", nil)
	s.svc.Close()

	s.deleter.mu.Lock()
	s.deleter.err = &domain.ConfigError{Missing: []string{"CLOUDINARY_API_SECRET"}}
	s.deleter.mu.Unlock()

	w := s.do(t, http.MethodPost, base+"/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}
	saved := decode[api.SaveResult](t, w)
	if saved.Warning == "" || len(saved.Missing) != 1 {
		t.Errorf("expected cleanup warning, got %+v", saved)
	}
	if len(saved.Images) != 0 {
		t.Errorf("images = %v, want none", saved.Images)
	}
}

func TestDeletePlace(t *testing.T) {
	s := newTestServer(t)
	p := s.createPlace(t, api.PlaceProto{NameEN: "Koh Rong", Images: []string{testBase + "x.jpg", "https://other.example.com/y.jpg"}})

	w := s.do(t, http.MethodDelete, "/admin/v1/places/"+p.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	got := decode[api.DeleteResults](t, w)
	if len(got.Results) != 1 || got.Results["cambodia-travel/x"] != "ok" {
		t.Errorf("results = %v", got.Results)
	}

	if w := s.do(t, http.MethodDelete, "/admin/v1/places/"+p.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestProxyDelete(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		want     int
		wantCode string
	}{
		{name: "deletes ids", body: cloudinary.DeleteRequest{PublicIDs: []string{"cambodia-travel/a"}}, want: http.StatusOK},
		{name: "empty list", body: cloudinary.DeleteRequest{}, want: http.StatusBadRequest},
		{name: "not configured", body: cloudinary.DeleteRequest{PublicIDs: []string{"a"}}, err: &domain.ConfigError{Missing: []string{"CLOUDINARY_API_KEY"}}, want: http.StatusInternalServerError, wantCode: cloudinary.ConfigErrorCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.deleter.err = tt.err

			w := s.do(t, http.MethodPost, "/api/cloudinary/delete", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			resp := decode[cloudinary.DeleteResponse](t, w)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if tt.want == http.StatusOK && resp.Results["cambodia-travel/a"] != domain.OutcomeDeleted {
				t.Errorf("results = %v", resp.Results)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "goplaces_") {
		t.Error("expected goplaces metrics in exposition")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		want        int
		wantMissing int
	}{
		{name: "missing place behind record store error", err: &domain.RecordStoreError{Op: "update images", PlaceID: "p1", Err: fmt.Errorf("place p1: %w", domain.ErrNotFound)}, want: http.StatusNotFound},
		{name: "record store failure", err: &domain.RecordStoreError{Op: "update images", PlaceID: "p1", Err: errors.New("disk I/O error")}, want: http.StatusBadGateway},
		{name: "unknown session", err: application.ErrSessionNotFound, want: http.StatusNotFound},
		{name: "uploads in flight", err: application.ErrUploadsInFlight, want: http.StatusConflict},
		{name: "session closing", err: application.ErrSessionClosing, want: http.StatusConflict},
		{name: "invalid place", err: application.ErrInvalidPlace, want: http.StatusBadRequest},
		{name: "missing credentials", err: &domain.ConfigError{Missing: []string{"CLOUDINARY_API_SECRET"}}, want: http.StatusInternalServerError, wantMissing: 1},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/admin/v1/sessions/s1/save", nil)

			writeError(c, tt.err)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			body := decode[api.Error](t, w)
			if len(body.Missing) != tt.wantMissing {
				t.Errorf("missing = %v, want %d entries", body.Missing, tt.wantMissing)
			}
		})
	}
}
