package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-comb/app/catalog"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/provider"
	"github.com/lysyi3m/news-comb/app/ranking"
	"github.com/lysyi3m/news-comb/app/serving"
	"github.com/lysyi3m/news-comb/app/tasks"
)

const testAPIKey = "secret"

type stubIngester struct {
	articles []catalog.Article
	err      error
}

func (s *stubIngester) Ingest(ctx context.Context, known func(id string) bool) ([]catalog.Article, error) {
	return s.articles, s.err
}

type recordingScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (r *recordingScheduler) Start() {}
func (r *recordingScheduler) Stop()  {}

func (r *recordingScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if r.err != nil {
		return r.err
	}
	r.enqueued = append(r.enqueued, task)
	return nil
}

type testEnv struct {
	router    *gin.Engine
	catalog   *catalog.Catalog
	store     *database.MemoryStore
	scheduler *recordingScheduler
	ingester  *stubIngester
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	yml := "type: rss\nurl: https://example.com/feed.xml\nsettings:\n  enabled: true\n  probe_images: false\n"
	if err := os.WriteFile(filepath.Join(dir, "example.yml"), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	configCache := provider.NewConfigCache(dir, provider.DefaultRegistry(), 10*time.Second)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	ingester := &stubIngester{}
	c := catalog.New(ingester)
	c.Append([]catalog.Article{
		{ID: "a1", Title: "One", URL: "https://example.com/1", Category: "Tech"},
		{ID: "a2", Title: "Two", URL: "https://example.com/2", Category: "Sports"},
		{ID: "a3", Title: "Three", URL: "https://example.com/3", Category: "Tech"},
	})

	store := database.NewMemoryStore()
	service := serving.NewService(c, ranking.NewRanker(c, store), store, 100)
	scheduler := &recordingScheduler{}

	handler := NewHandler(service, c, configCache, store, scheduler, 20)

	return &testEnv{
		router:    NewServer(handler, testAPIKey),
		catalog:   c,
		store:     store,
		scheduler: scheduler,
		ingester:  ingester,
	}
}

func (e *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func ids(articles []catalog.Article) string {
	parts := make([]string, len(articles))
	for i, article := range articles {
		parts[i] = article.ID
	}
	return strings.Join(parts, ",")
}

func TestGetArticles(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/articles?page=1&page_size=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	articles := decode[[]catalog.Article](t, w)
	if got := ids(articles); got != "a1,a2" {
		t.Errorf("Expected a1,a2, got %s", got)
	}
	if w.Header().Get("X-Catalog-Size") != "3" {
		t.Errorf("Expected X-Catalog-Size 3, got %q", w.Header().Get("X-Catalog-Size"))
	}
}

func TestGetArticlesDefaultsAndBadParams(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/articles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := ids(decode[[]catalog.Article](t, w)); got != "a1,a2,a3" {
		t.Errorf("Expected whole catalog on default page, got %s", got)
	}

	for _, target := range []string{
		"/articles?page=0",
		"/articles?page_size=-1",
		"/articles?page=abc",
		"/articles?page_size=1000",
		"/recommend?user_id=u1&page=0",
	} {
		if w := env.do("GET", target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestInteractAndRecommend(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/interact", `{"user_id":"u1","article_id":"a1","interaction":"like"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[InteractResponse](t, w)
	if resp.Message != "Article liked successfully!" || resp.InteractionID == "" {
		t.Errorf("Unexpected response %+v", resp)
	}

	w = env.do("POST", "/interact", `{"user_id":"u1","article_id":"a2","interaction":"dislike"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[InteractResponse](t, w); resp.Message != "Article disliked successfully!" {
		t.Errorf("Unexpected message %q", resp.Message)
	}

	w = env.do("GET", "/recommend?user_id=u1&page=1&page_size=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	recommend := decode[RecommendResponse](t, w)
	if got := ids(recommend.Recommendations); got != "a1,a3,a2" {
		t.Errorf("Expected a1,a3,a2, got %s", got)
	}

	w = env.do("GET", "/recommend?page=1&page_size=3", "")
	if got := ids(decode[RecommendResponse](t, w).Recommendations); got != "a1,a2,a3" {
		t.Errorf("Expected catalog order without user, got %s", got)
	}
}

func TestInteractErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown article", `{"user_id":"u1","article_id":"nope","interaction":"like"}`, http.StatusNotFound},
		{"bad kind", `{"user_id":"u1","article_id":"a1","interaction":"love"}`, http.StatusBadRequest},
		{"missing user", `{"article_id":"a1","interaction":"like"}`, http.StatusBadRequest},
		{"malformed json", `{"user_id":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do("POST", "/interact", tt.body)
			if w.Code != tt.code {
				t.Errorf("Expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if events := env.store.Events(); len(events) != 0 {
				t.Errorf("Expected no events written, got %d", len(events))
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	health := decode[map[string]interface{}](t, w)
	if health["articles"] != float64(3) || health["providers"] != float64(1) || health["store"] != "ok" {
		t.Errorf("Unexpected health %v", health)
	}
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do("GET", "/api/providers", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}
	if w := env.do("GET", "/api/providers", "", "X-API-Key", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}
	if w := env.do("GET", "/api/providers", "", "Authorization", "Bearer "+testAPIKey); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer key, got %d", w.Code)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHandler(nil, env.catalog, nil, env.store, env.scheduler, 20)
	router := NewServer(handler, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/providers", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when admin API is disabled, got %d", w.Code)
	}
}

func TestAPIListProviders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/providers", "", "X-API-Key", testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	resp := decode[struct {
		Providers []ProviderInfo `json:"providers"`
		Total     int            `json:"total"`
	}](t, w)

	if resp.Total != 1 || resp.Providers[0].Name != "example" || resp.Providers[0].Type != "rss" {
		t.Errorf("Unexpected providers %+v", resp)
	}
	if resp.Providers[0].ProbeImages {
		t.Error("Expected probe_images false")
	}
}

func TestAPIRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.ingester.articles = []catalog.Article{{ID: "b1", Category: "World"}, {ID: "a1", Category: "Tech"}}

	w := env.do("POST", "/api/refresh", "", "X-API-Key", testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[map[string]interface{}](t, w)
	if resp["added"] != float64(1) || resp["size"] != float64(4) {
		t.Errorf("Unexpected refresh response %v", resp)
	}

	env.ingester.articles = nil
	env.ingester.err = errors.Join(provider.ErrProviderUnavailable)
	if w := env.do("POST", "/api/refresh", "", "X-API-Key", testAPIKey); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 when every provider fails, got %d", w.Code)
	}
}

func TestAPIPreferences(t *testing.T) {
	env := newTestEnv(t)
	env.do("POST", "/interact", `{"user_id":"u1","article_id":"a2","interaction":"dislike"}`)

	w := env.do("GET", "/api/users/u1/preferences", "", "X-API-Key", testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	resp := decode[struct {
		UserID      string         `json:"user_id"`
		Preferences map[string]int `json:"preferences"`
	}](t, w)
	if resp.UserID != "u1" || resp.Preferences["Sports"] != -1 {
		t.Errorf("Unexpected preferences %+v", resp)
	}
}

func TestAPIRebuildPreferences(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/preferences/rebuild", "", "X-API-Key", testAPIKey)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if len(env.scheduler.enqueued) != 1 || env.scheduler.enqueued[0].GetType() != tasks.TaskTypeRebuildPreferences {
		t.Errorf("Expected one rebuild task, got %v", env.scheduler.enqueued)
	}

	env.scheduler.err = errors.New("task queue is full")
	if w := env.do("POST", "/api/preferences/rebuild", "", "X-API-Key", testAPIKey); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when the queue is full, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("OPTIONS", "/interact", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}
