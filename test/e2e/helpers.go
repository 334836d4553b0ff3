//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Waqasabid99/agiAI/internal/api/handlers"
	"github.com/Waqasabid99/agiAI/internal/openai"
	"github.com/Waqasabid99/agiAI/internal/repository"
	"github.com/Waqasabid99/agiAI/internal/scraper"
	"github.com/Waqasabid99/agiAI/internal/server"
	"github.com/Waqasabid99/agiAI/internal/service"
	"github.com/Waqasabid99/agiAI/internal/storage"
	"github.com/Waqasabid99/agiAI/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	indexTable = "e2e_chunks"
	adminToken = "e2e-admin-token"
)

// keywords are the axes of the fake embedding space.
var keywords = []string{"ship", "return", "warranty"}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Provider     *httptest.Server
	Site         *httptest.Server
	ServerURL    string
	ServerCloser func()
	Service      *service.RetrievalService
	BinaryDir    string
	ConfigDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts postgres and RustFS, a fake model provider, a small
// website and the HTTP server wired the way agiaid wires it.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	archive, err := storage.NewPageArchive(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "e2e-pages",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create page archive: %v", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	index, err := repository.NewVectorIndex(pool, indexTable, 2)
	if err != nil {
		t.Fatalf("failed to create vector index: %v", err)
	}

	provider := httptest.NewServer(fakeProvider())
	site := httptest.NewServer(fakeSite())

	svc := service.NewRetrievalService(
		openai.NewClientWithConfig(openai.Config{
			APIKey:         "test-key",
			BaseURL:        provider.URL + "/v1",
			EmbeddingModel: "text-embedding-3-small",
			Timeout:        10 * time.Second,
		}),
		openai.NewChatClient(openai.ChatConfig{
			APIKey:  "test-key",
			BaseURL: provider.URL + "/v1",
			Model:   "fake-chat",
			Timeout: 10 * time.Second,
		}),
		index,
		service.RetrievalConfig{
			Chunk:           service.ChunkConfig{TargetTokens: 40, OverlapTokens: 8},
			TopK:            2,
			HistoryMessages: 6,
			CrawlMaxPages:   10,
			Backend:         "postgres",
		},
	)
	pageScraper := scraper.New(scraper.Config{Timeout: 5 * time.Second, UserAgent: "agiai-e2e"})
	svc.WithScraper(pageScraper, scraper.NewCrawler(pageScraper, 20)).
		WithArchive(archive).
		WithQueryLog(repository.NewQueryLogRepository(pool))

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	serverURL, serverCloser := startServer(t, svc, port)

	configDir, err := os.MkdirTemp("", "agiai-e2e-config-*")
	if err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Provider:     provider,
		Site:         site,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Service:      svc,
		ConfigDir:    configDir,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Site != nil {
		e.Site.Close()
	}
	if e.Provider != nil {
		e.Provider.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
	if e.ConfigDir != "" {
		os.RemoveAll(e.ConfigDir)
	}
}

// BuildBinaries builds the agiai client binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "agiai-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "agiai"), "./cmd/agiai")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build agiai: %v\n%s", err, out)
	}
}

// RunAgiai runs the agiai CLI against the test server
func (e *E2ETestEnv) RunAgiai(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "agiai"), args...)
	cmd.Env = append(os.Environ(),
		"AGIAI_ADMIN_TOKEN="+adminToken,
		"AGIAI_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.ConfigDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, "")
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
		}
	}
	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, apiResp.Code, apiResp.Error)
	}
	return &apiResp, nil
}

func startServer(t *testing.T, svc *service.RetrievalService, port int) (string, func()) {
	router := server.NewRouter(server.RouterConfig{
		IngestHandler: handlers.NewIngestHandler(svc),
		QueryHandler:  handlers.NewQueryHandler(svc),
		IndexHandler:  handlers.NewIndexHandler(svc),
		AdminToken:    adminToken,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// keywordVector gives one axis per keyword plus a bias axis.
func keywordVector(text string) []float32 {
	text = strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, kw := range keywords {
		if strings.Contains(text, kw) {
			vec[i] = 1
		}
	}
	vec[len(keywords)] = 0.1
	return vec
}

// fakeProvider speaks the OpenAI embeddings and chat completions wire format.
// The chat answer echoes the first context line so tests can see what was retrieved.
func fakeProvider() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Input) == 0 {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i, in := range req.Input {
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": keywordVector(in)})
		}
		writeJSON(w, map[string]any{"object": "list", "model": "text-embedding-3-small", "data": data})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		answer := "no context"
		for _, line := range strings.Split(prompt, "\n") {
			if strings.HasPrefix(line, "[Source 1]: ") {
				answer = "From the site: " + strings.TrimPrefix(line, "[Source 1]: ")
				break
			}
		}
		writeJSON(w, map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "fake-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": answer},
				"finish_reason": "stop",
			}},
		})
	})
	return mux
}

const sitePage = `<!doctype html><html><head><title>%s</title></head><body>
<nav><a href="/">Home</a> <a href="/shipping">Shipping</a> <a href="/returns">Returns</a></nav>
<main>%s</main>
<footer>Acme Inc.</footer>
</body></html>`

func fakeSite() http.Handler {
	mux := http.NewServeMux()
	page := func(title, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, sitePage, title, body)
		}
	}
	mux.HandleFunc("/shipping", page("Shipping", "<p>We ship worldwide within 5 business days. Express shipping is available.</p>"))
	mux.HandleFunc("/returns", page("Returns", "<p>Returns are free for 30 days after delivery. Refunds take a week.</p>"))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page("Acme", "<p>Welcome to Acme.</p>")(w, r)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
