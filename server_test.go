package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"desaweb/models"
	"desaweb/pkg/config"
	"desaweb/pkg/events"
	"desaweb/pkg/kv"
	"desaweb/pkg/logger"
	"desaweb/pkg/objectstore"
	"desaweb/pkg/recordstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Silence()
	os.Exit(m.Run())
}

const testPassword = "rahasia123"

func testConfig(t *testing.T) *config.Config {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return &config.Config{
		JWTSecret:         "test-secret",
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		MirrorDriver:      "memory",
		EventsDriver:      "memory",
		ObjectStore:       "local",
		UploadBase:        t.TempDir(),
		ContactEmail:      "info@desa.test",
		RateLimitRPS:      100,
		RateLimitBurst:    100,
		VisitWindow:       time.Hour,
	}
}

// newTestServer wires the app against in-memory backends. With remote the
// record store is an in-memory table set; without it the app runs from the
// mirror only.
func newTestServer(t *testing.T, remote bool) (*app, *gin.Engine) {
	cfg := testConfig(t)
	d := deps{
		store:   kv.NewMemory(),
		bus:     events.NewMemory(events.DefaultRetain),
		objects: objectstore.NewLocal(cfg.UploadBase, "/uploads"),
	}
	if remote {
		d.remote = recordstore.NewMemory()
	}
	a := assemble(cfg, d)
	r := gin.New()
	a.setupRoutes(r)
	return a, r
}

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	rec := performRequest(r, method, path, rd, token, "application/json")
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func login(t *testing.T, r http.Handler) (token, refresh string) {
	t.Helper()
	rec, out := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ = out["token"].(string)
	refresh, _ = out["refresh_token"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, refresh)
	return token, refresh
}

func data(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	d, ok := out["data"].(map[string]any)
	require.True(t, ok, "no data object in %v", out)
	return d
}

func list(t *testing.T, out map[string]any) []any {
	t.Helper()
	items, ok := out["data"].([]any)
	require.True(t, ok, "no data list in %v", out)
	return items
}

func sampleBusiness() map[string]any {
	return map[string]any{
		"namaUsaha":   "Keripik Bu Tini",
		"kategori":    "makanan",
		"deskripsi":   "Keripik pisang dan singkong rumahan.",
		"alamat":      "Dusun Krajan, RT 01/RW 02",
		"telepon":     "0812-1111-2222",
		"email":       "tini@example.com",
		"hargaMin":    5000,
		"hargaMax":    20000,
		"produkUtama": "Keripik pisang",
		"namaOwner":   "Tini Rahayu",
		"nikOwner":    "3271046504930002",
	}
}

func TestNewsPublishingFlow(t *testing.T) {
	_, r := newTestServer(t, true)
	token, _ := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{
		"judul":     "Festival Budaya Desa",
		"kategori":  "acara",
		"ringkasan": "Festival tahunan desa.",
		"konten":    "Paragraf pertama.\n\nParagraf kedua.",
		"tanggal":   "2024-12-15",
		"status":    "published",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := data(t, out)
	slug, _ := created["slug"].(string)
	require.NotEmpty(t, slug)
	assert.IsType(t, float64(0), created["id"], "record store ids are numbers")
	assert.Equal(t, "admin", created["penulis"])

	rec, _ = doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{"judul": "Rapat Desa", "status": "draft"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, out = doJSON(t, r, http.MethodGet, "/api/berita", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list(t, out), 1)

	rec, out = doJSON(t, r, http.MethodGet, "/api/admin/berita", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list(t, out), 2)

	rec, out = doJSON(t, r, http.MethodGet, "/api/berita/"+slug, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []any{"Paragraf pertama.", "Paragraf kedua."}, out["paragraphs"])

	rec, _ = doJSON(t, r, http.MethodGet, "/api/berita/tidak-ada", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewsSlugStableOnEdit(t *testing.T) {
	_, r := newTestServer(t, true)
	token, _ := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{"judul": "Judul Lama", "status": "draft"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := data(t, out)
	path := "/api/admin/berita/" + jsonID(created["id"])

	rec, out = doJSON(t, r, http.MethodPatch, path, map[string]any{"judul": "Judul Baru"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := data(t, out)
	assert.Equal(t, "Judul Baru", updated["judul"])
	assert.Equal(t, created["slug"], updated["slug"])

	rec, out = doJSON(t, r, http.MethodPut, path+"/status", map[string]any{"status": "published"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, data(t, out)["tanggal"], "publishing dates the record")

	rec, _ = doJSON(t, r, http.MethodPut, path+"/status", map[string]any{"status": "archived"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func jsonID(v any) string {
	switch id := v.(type) {
	case float64:
		b, _ := json.Marshal(int64(id))
		return string(b)
	case string:
		return id
	}
	return ""
}

func TestDeleteBerita(t *testing.T) {
	_, r := newTestServer(t, true)
	token, _ := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/delete-berita", map[string]any{}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ID tidak diberikan", out["error"])

	rec, out = doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{"judul": "Akan Dihapus"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := data(t, out)["id"]

	rec, out = doJSON(t, r, http.MethodPost, "/api/delete-berita", map[string]any{"id": id}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["success"])

	rec, _ = doJSON(t, r, http.MethodGet, "/api/admin/berita/"+jsonID(id), nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = doJSON(t, r, http.MethodPost, "/api/delete-berita", map[string]any{"id": id}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code, "deleting twice reports the missing record")
	assert.NotEmpty(t, out["error"])
}

func TestRegistrationIsHiddenUntilApproved(t *testing.T) {
	_, r := newTestServer(t, true)
	token, _ := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/umkm", sampleBusiness(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := data(t, out)
	assert.Equal(t, "pending", reg["status"])
	assert.Equal(t, "", reg["nikOwner"])
	id := jsonID(reg["id"])

	rec, out = doJSON(t, r, http.MethodGet, "/api/umkm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, list(t, out))
	rec, _ = doJSON(t, r, http.MethodGet, "/api/umkm/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = doJSON(t, r, http.MethodGet, "/api/admin/umkm/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3271046504930002", data(t, out)["nikOwner"])

	rec, _ = doJSON(t, r, http.MethodPut, "/api/admin/umkm/"+id+"/status", map[string]any{"status": "approved"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, out = doJSON(t, r, http.MethodGet, "/api/umkm?kategori=makanan", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := list(t, out)
	require.Len(t, items, 1)
	assert.Equal(t, "", items[0].(map[string]any)["nikOwner"])

	rec, _ = doJSON(t, r, http.MethodPut, "/api/admin/umkm/"+id+"/status", map[string]any{"status": "rejected"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = doJSON(t, r, http.MethodPut, "/api/admin/umkm/"+id+"/status", map[string]any{"status": "rejected", "force": true}, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistrationValidation(t *testing.T) {
	_, r := newTestServer(t, true)

	b := sampleBusiness()
	b["nikOwner"] = "12345"
	rec, out := doJSON(t, r, http.MethodPost, "/api/umkm", b, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "nikOwner", out["field"])

	b = sampleBusiness()
	b["hargaMin"] = 30000
	rec, out = doJSON(t, r, http.MethodPost, "/api/umkm", b, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "hargaMax", out["field"])
}

func registrationForm(t *testing.T, fields map[string]any) (io.Reader, string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var photo bytes.Buffer
	require.NoError(t, png.Encode(&photo, img))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, fmt.Sprint(v)))
	}
	part, err := w.CreateFormFile("foto", "warung.png")
	require.NoError(t, err)
	_, err = part.Write(photo.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestMultipartRegistration(t *testing.T) {
	a, r := newTestServer(t, true)
	stored := func() []string {
		files, err := filepath.Glob(filepath.Join(a.cfg.UploadBase, "images", "*"))
		require.NoError(t, err)
		return files
	}

	b := sampleBusiness()
	delete(b, "namaOwner")
	body, ct := registrationForm(t, b)
	rec := performRequest(r, http.MethodPost, "/api/umkm", body, "", ct)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "namaOwner")
	assert.Empty(t, stored(), "a rejected form leaves no photos behind")

	body, ct = registrationForm(t, sampleBusiness())
	rec = performRequest(r, http.MethodPost, "/api/umkm", body, "", ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	reg := data(t, out)
	assert.True(t, strings.HasPrefix(reg["fotoUrl"].(string), "/uploads/images/"), reg["fotoUrl"])
	assert.Len(t, stored(), 1)
	assert.Equal(t, float64(5000), reg["hargaMin"])
}

func TestReviews(t *testing.T) {
	a, r := newTestServer(t, true)
	token, _ := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/umkm", sampleBusiness(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := jsonID(data(t, out)["id"])

	rec, _ = doJSON(t, r, http.MethodPost, "/api/umkm/"+id+"/reviews", map[string]any{"nama": "Budi", "rating": 5}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "pending businesses take no reviews")
	rec, _ = doJSON(t, r, http.MethodGet, "/api/umkm/"+id+"/reviews", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "pending businesses show no reviews")

	rec, _ = doJSON(t, r, http.MethodPut, "/api/admin/umkm/"+id+"/status", map[string]any{"status": "approved"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/umkm/"+id+"/reviews", map[string]any{"nama": "Budi", "rating": 6}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = doJSON(t, r, http.MethodPost, "/api/umkm/"+id+"/reviews", map[string]any{"nama": "Budi", "rating": 5, "komentar": "Enak"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = doJSON(t, r, http.MethodPost, "/api/umkm/"+id+"/reviews", map[string]any{"nama": "Sari", "rating": 4}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, out = doJSON(t, r, http.MethodGet, "/api/umkm/"+id+"/reviews", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list(t, out), 2)
	rating := out["rating"].(map[string]any)
	assert.Equal(t, 4.5, rating["average"])
	assert.Equal(t, float64(2), rating["count"])

	dash, err := a.svc.Dashboard(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Stats.TotalReviews)
	assert.Equal(t, 1, dash.Stats.ApprovedUMKM)
}

func TestVisitorIsCountedOncePerWindow(t *testing.T) {
	_, r := newTestServer(t, false)

	rec, out := doJSON(t, r, http.MethodPost, "/api/visitors/track", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["counted"])
	rec, out = doJSON(t, r, http.MethodPost, "/api/visitors/track", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["counted"])

	rec, out = doJSON(t, r, http.MethodGet, "/api/visitors", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), data(t, out)["totalVisitors"])
}

func TestContactBuildsMailto(t *testing.T) {
	_, r := newTestServer(t, false)

	rec, out := doJSON(t, r, http.MethodPost, "/api/kontak", map[string]any{
		"nama":   "Budi",
		"email":  "budi@example.com",
		"subjek": "Halo Desa",
		"pesan":  "Apa kabar?",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link, _ := out["mailto"].(string)
	assert.True(t, strings.HasPrefix(link, "mailto:info@desa.test?subject=%5BWebsite%20Desa%5D%20Halo%20Desa&body="), link)
	assert.NotContains(t, link, "+")
	assert.Contains(t, out["body"], "Telepon: Tidak disertakan")

	rec, _ = doJSON(t, r, http.MethodPost, "/api/kontak", map[string]any{
		"nama":   "Budi",
		"email":  "bukan-email",
		"subjek": "Halo",
		"pesan":  "Apa kabar?",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactMessageBody(t *testing.T) {
	m := contactMessage{Nama: "Sari", Email: "sari@example.com", Telepon: "0812", Subjek: "UMKM", Pesan: "Mohon info."}
	subject, body, _ := m.mailto("info@desa.test", time.Date(2024, 12, 15, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "[Website Desa] UMKM", subject)
	assert.Contains(t, body, "Nama Pengirim: Sari\n")
	assert.Contains(t, body, "Telepon: 0812\n")
	assert.True(t, strings.HasSuffix(body, "Tanggal: 15 Desember 2024"), body)
}

func TestAdminRoutesNeedRole(t *testing.T) {
	a, r := newTestServer(t, true)

	rec, _ := doJSON(t, r, http.MethodGet, "/api/admin/dashboard", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = doJSON(t, r, http.MethodGet, "/api/admin/dashboard", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	editor, err := a.auth.issueAccess(principal{Username: "editor1", Role: models.RoleEditor})
	require.NoError(t, err)
	rec, _ = doJSON(t, r, http.MethodGet, "/api/admin/dashboard", nil, editor)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, out := doJSON(t, r, http.MethodGet, "/api/auth/session", nil, editor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["can_moderate"])
	rec, _ = doJSON(t, r, http.MethodGet, "/api/admin/umkm", nil, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = doJSON(t, r, http.MethodPost, "/api/delete-berita", map[string]any{"id": 1}, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "salah"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshTokenRotation(t *testing.T) {
	_, r := newTestServer(t, false)
	_, refresh := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next, _ := out["refresh_token"].(string)
	require.NotEmpty(t, next)
	assert.NotEqual(t, refresh, next)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": next}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": next}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func eventTypes(out map[string]any) []string {
	evs, _ := out["events"].([]any)
	types := []string{}
	for _, ev := range evs {
		types = append(types, ev.(map[string]any)["type"].(string))
	}
	return types
}

func TestEventsPoll(t *testing.T) {
	_, r := newTestServer(t, true)
	rec, _ := doJSON(t, r, http.MethodPost, "/api/umkm", sampleBusiness(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := login(t, r)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{"judul": "Rencana Rapat"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{"judul": "Kabar Baru", "status": "published", "tanggal": "2025-01-02"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, out := doJSON(t, r, http.MethodGet, "/api/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{events.NewsCreated}, eventTypes(out))
	assert.NotContains(t, rec.Body.String(), "Keripik Bu Tini")
	assert.NotContains(t, rec.Body.String(), "administrator")

	last := jsonID(out["last"])
	assert.Equal(t, "4", last, "last follows the full sequence")
	rec, out = doJSON(t, r, http.MethodGet, "/api/events?since="+last, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out["events"])

	rec, _ = doJSON(t, r, http.MethodGet, "/api/admin/events", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = doJSON(t, r, http.MethodGet, "/api/admin/events", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{events.BusinessRegistered, events.SignedIn, events.NewsCreated, events.NewsCreated}, eventTypes(out))
}

func TestMirrorOnlyDeployment(t *testing.T) {
	_, r := newTestServer(t, false)
	token, _ := login(t, r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{"judul": "Offline", "status": "published"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := data(t, out)
	assert.IsType(t, "", created["id"], "mirror ids are strings")
	assert.Equal(t, "local", created["source"])

	rec, out = doJSON(t, r, http.MethodGet, "/api/berita", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list(t, out), 1)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/admin/sync", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, out = doJSON(t, r, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["record_store"])
}

func TestSeedDemo(t *testing.T) {
	a, r := newTestServer(t, true)

	rep, err := seedDemo(t.Context(), a.svc)
	require.NoError(t, err)
	assert.Equal(t, seedReport{Businesses: 3, News: 2}, rep)

	rep, err = seedDemo(t.Context(), a.svc)
	require.NoError(t, err)
	assert.Equal(t, seedReport{}, rep, "seeding twice adds nothing")

	rec, out := doJSON(t, r, http.MethodGet, "/api/umkm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list(t, out), 3)
	rec, out = doJSON(t, r, http.MethodGet, "/api/berita?kategori=pelatihan", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list(t, out), 1)
}

// TestPostgresFlow runs against a real database. Set DB_DSN_TEST=1 and DB_DSN to run it.
func TestPostgresFlow(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	cfg := testConfig(t)
	cfg.DBDSN = os.Getenv("DB_DSN")
	store, err := openRecordStore(cfg.DBDSN, true)
	require.NoError(t, err)
	defer store.Close()

	a := assemble(cfg, deps{
		db:      store.DB(),
		remote:  store,
		store:   kv.NewMemory(),
		bus:     events.NewMemory(events.DefaultRetain),
		objects: objectstore.NewLocal(cfg.UploadBase, "/uploads"),
	})
	r := gin.New()
	a.setupRoutes(r)

	rec, out := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := out["token"].(string)

	rec, out = doJSON(t, r, http.MethodPost, "/api/admin/berita", map[string]any{
		"judul":  "Uji Integrasi " + time.Now().Format(time.RFC3339Nano),
		"status": "published",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := data(t, out)["id"]

	rec, _ = doJSON(t, r, http.MethodPost, "/api/delete-berita", map[string]any{"id": id}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
