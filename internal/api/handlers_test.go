package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dompeassist/internal/knowledge"
	"dompeassist/internal/models"
	"dompeassist/internal/search"
	"dompeassist/internal/service/ai"
	"dompeassist/internal/service/assistant"
)

// scriptedCompleter replies to gating instructions by keyword and to
// everything else with final.
type scriptedCompleter struct {
	knowledge string
	clarity   string
	final     string
	err       error
}

func (s *scriptedCompleter) Complete(_ context.Context, conv models.Conversation, _ ai.CallOptions) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	last := conv[len(conv)-1]
	if last.Role == models.RoleSystem {
		switch {
		case strings.Contains(last.Content, "respond with ONLY 'YES'"):
			return s.knowledge, nil
		case strings.Contains(last.Content, "respond with ONLY 'NEEDS_CLARIFICATION'"):
			return s.clarity, nil
		case strings.Contains(last.Content, "needs clarification"):
			return "Could you tell me which system you mean?", nil
		}
	}
	return s.final, nil
}

type recordingAnswerer struct {
	message string
	history []models.ChatTurn
	answer  *assistant.Answer
	err     error
}

func (r *recordingAnswerer) Answer(_ context.Context, message string, history []models.ChatTurn) (*assistant.Answer, error) {
	r.message = message
	r.history = history
	return r.answer, r.err
}

func TestChatAnswersFromKnowledgeBase(t *testing.T) {
	completer := &scriptedCompleter{knowledge: "YES", clarity: "CLEAR", final: "Call the emergency support line: +39 02 12345678."}
	router := newTestServer(t, newPipeline(t, completer, unreachableSearch(t)), nil)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{
		"message": "What is the emergency IT support number?",
	}, nil)
	assertStatus(t, rec, http.StatusOK)

	var body map[string]any
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !strings.Contains(body["response"].(string), "+39 02 12345678") {
		t.Fatalf("unexpected response %q", body["response"])
	}
	if v, ok := body["searchResult"]; !ok || v != nil {
		t.Fatalf("expected searchResult null, got %v", v)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestChatAsksClarifyingQuestion(t *testing.T) {
	completer := &scriptedCompleter{knowledge: "NO", clarity: "NEEDS_CLARIFICATION", final: "unused"}
	router := newTestServer(t, newPipeline(t, completer, unreachableSearch(t)), nil)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{
		"message": "How do I reset my password?",
	}, nil)
	assertStatus(t, rec, http.StatusOK)

	var body chatResponse
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !strings.Contains(body.Response, "?") {
		t.Fatalf("expected a question, got %q", body.Response)
	}
	if body.SearchResult != nil {
		t.Fatalf("expected no search result")
	}
}

func TestChatSurvivesUnreachableSearch(t *testing.T) {
	completer := &scriptedCompleter{knowledge: "NO", clarity: "CLEAR", final: "I could not find current figures, please check the official site."}
	router := newTestServer(t, newPipeline(t, completer, unreachableSearch(t)), nil)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{
		"message": "What is the stock price today?",
		"history": []map[string]string{
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "Hello!"},
		},
	}, nil)
	assertStatus(t, rec, http.StatusOK)

	var body chatResponse
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Response == "" {
		t.Fatalf("expected non-empty response")
	}
	if body.SearchResult == nil {
		t.Fatalf("expected search result")
	}
	if body.SearchResult.Source != "error" {
		t.Fatalf("expected error source, got %q", body.SearchResult.Source)
	}
	if body.SearchResult.AbstractURL != nil {
		t.Fatalf("expected null abstract url")
	}
	if len(body.SearchResult.RelatedTopics) != 2 {
		t.Fatalf("expected 2 fallback topics, got %d", len(body.SearchResult.RelatedTopics))
	}
}

func TestChatValidation(t *testing.T) {
	answerer := &recordingAnswerer{}
	router := newTestServer(t, answerer, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing message", `{}`},
		{"blank message", `{"message":"   "}`},
		{"invalid json", `{"message":`},
		{"wrong type", `{"message": 42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assertStatus(t, rec, http.StatusBadRequest)

			var body map[string]string
			decodeJSON(t, rec.Body.Bytes(), &body)
			if body["error"] != "Message is required" {
				t.Fatalf("unexpected error body %v", body)
			}
		})
	}
	if answerer.message != "" {
		t.Fatalf("pipeline should not run on invalid input")
	}
}

func TestChatHidesUpstreamErrors(t *testing.T) {
	answerer := &recordingAnswerer{err: errors.New("final answer: 401 invalid api key sk-123")}
	router := newTestServer(t, answerer, nil)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{"message": "hello"}, nil)
	assertStatus(t, rec, http.StatusInternalServerError)
	if strings.Contains(rec.Body.String(), "sk-123") {
		t.Fatalf("upstream details leaked: %s", rec.Body.String())
	}
	var body map[string]string
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body["error"] != "An error occurred while processing your request." {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestChatPassesHistory(t *testing.T) {
	answerer := &recordingAnswerer{answer: &assistant.Answer{Response: "ok"}}
	router := newTestServer(t, answerer, nil)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{
		"message": "and on mac?",
		"history": []map[string]string{{"role": "user", "content": "vpn on windows?"}},
	}, map[string]string{"X-Request-ID": "abc-123"})
	assertStatus(t, rec, http.StatusOK)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected inbound request id echoed, got %q", got)
	}
	if answerer.message != "and on mac?" || len(answerer.history) != 1 {
		t.Fatalf("unexpected pipeline input %q %v", answerer.message, answerer.history)
	}
}

func TestHealth(t *testing.T) {
	router := newTestServer(t, &recordingAnswerer{}, nil)

	rec := doJSONRequest(t, router, http.MethodGet, "/api/health", nil, nil)
	assertStatus(t, rec, http.StatusOK)

	var body map[string]string
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected status %q", body["status"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"]); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}
}

func TestChatRateLimited(t *testing.T) {
	answerer := &recordingAnswerer{answer: &assistant.Answer{Response: "ok"}}
	router := newTestServer(t, answerer, NewMemoryLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{"message": "hi"}, nil)
		assertStatus(t, rec, http.StatusOK)
	}
	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]any{"message": "hi"}, nil)
	assertStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	// health is never limited
	assertStatus(t, doJSONRequest(t, router, http.MethodGet, "/api/health", nil, nil), http.StatusOK)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o600); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.js"), []byte("console.log(1)"), 0o600); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHandler(&recordingAnswerer{}, nil), RouterOptions{StaticDir: dir})

	rec := doJSONRequest(t, router, http.MethodGet, "/main.js", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "console.log") {
		t.Fatalf("expected asset body, got %q", rec.Body.String())
	}

	rec = doJSONRequest(t, router, http.MethodGet, "/settings/profile", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "app") {
		t.Fatalf("expected index fallback, got %q", rec.Body.String())
	}

	rec = doJSONRequest(t, router, http.MethodGet, "/api/unknown", nil, nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func newPipeline(t *testing.T, completer ai.Completer, searcher search.Searcher) *assistant.Pipeline {
	t.Helper()
	base, err := knowledge.Embedded()
	if err != nil {
		t.Fatalf("embedded knowledge: %v", err)
	}
	return assistant.NewPipeline(completer, searcher, knowledge.NewBuilder(base, true), assistant.Options{ClarificationEnabled: true})
}

func unreachableSearch(t *testing.T) *search.Provider {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return search.NewProvider(search.Options{Endpoint: "http://" + addr + "/html/", Timeout: time.Second})
}

func newTestServer(t *testing.T, pipeline Answerer, limiter Limiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(pipeline, limiter), RouterOptions{})
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}
