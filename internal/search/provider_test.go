package search

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProvider(Options{Endpoint: srv.URL + "/html/", Timeout: 2 * time.Second})
}

func TestSearchReturnsResults(t *testing.T) {
	var gotQuery, gotUA, gotLang string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte(resultHTML(6)))
	})

	res := p.Search(context.Background(), "vpn setup")

	assert.Equal(t, "vpn setup Dompé Pharmaceuticals", gotQuery)
	assert.Contains(t, gotUA, "Mozilla/5.0")
	assert.Equal(t, "en-US,en;q=0.5", gotLang)

	assert.Equal(t, "Web Search", res.Source)
	assert.Equal(t, "Snippet 1", res.AbstractText)
	require.NotNil(t, res.AbstractURL)
	assert.Equal(t, "https://example.com/1", *res.AbstractURL)
	require.Len(t, res.RelatedTopics, ProviderResultLimit)
	assert.Equal(t, "Result 2", res.RelatedTopics[1].Text)
}

func TestSearchEmptySnippetUsesHeadline(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div id="links"><div class="result"><a class="result__a" href="https://dompe.com">Dompé</a></div></div>`))
	})

	res := p.Search(context.Background(), "dompe")
	assert.Equal(t, `Search results for "dompe"`, res.AbstractText)
	require.Len(t, res.RelatedTopics, 1)
}

func TestSearchZeroResults(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>No results.</body></html>`))
	})

	res := p.Search(context.Background(), "printer")

	assert.Equal(t, "Web Search", res.Source)
	assert.Equal(t, `Limited information found about "printer Dompé Pharmaceuticals". You may want to try a more specific query.`, res.AbstractText)
	assert.Nil(t, res.AbstractURL)
	require.Len(t, res.RelatedTopics, 2)
	assert.Equal(t, "https://www.dompe.com/en", res.RelatedTopics[0].URL)
	assert.True(t, strings.HasPrefix(res.RelatedTopics[1].URL, "https://www.google.com/search?q="))
}

func TestSearchNon200IsFallback(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	res := p.Search(context.Background(), "printer")

	assert.Equal(t, "error", res.Source)
	assert.True(t, strings.HasPrefix(res.AbstractText, `Error searching for "printer". This might be due to connectivity issues or rate limiting.`))
	assert.Contains(t, res.AbstractText, "503")
	assert.Nil(t, res.AbstractURL)
	require.Len(t, res.RelatedTopics, 2)
	assert.Contains(t, res.RelatedTopics[1].URL, "printer+Domp%C3%A9+Pharmaceuticals")
}

func TestSearchUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := NewProvider(Options{Endpoint: "http://" + addr + "/html/", Timeout: time.Second})
	res := p.Search(context.Background(), "anything")

	assert.Equal(t, "error", res.Source)
	assert.NotEmpty(t, res.AbstractText)
	assert.Len(t, res.RelatedTopics, 2)
}

func TestSearchCancelledContext(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultHTML(1)))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Search(ctx, "anything")
	assert.Equal(t, "error", res.Source)
}

func TestFetchProbeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultHTML(15)))
	}))
	t.Cleanup(srv.Close)

	p := NewProvider(Options{Endpoint: srv.URL, ResultLimit: ProbeResultLimit})
	got, err := p.Fetch(context.Background(), "dompe")
	require.NoError(t, err)
	assert.Len(t, got, ProbeResultLimit)
}
