package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptwizard/internal/apperr"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(Options{
		ScriptBase: srv.URL,
		ImageBase:  srv.URL,
		VideoBase:  srv.URL,
		Timeout:    5 * time.Second,
	})
	c.now = func() time.Time { return time.Unix(0, 42) }
	return c
}

func validScriptRequest() ScriptRequest {
	return ScriptRequest{
		Brand:       "晨光咖啡",
		Topic:       "冷萃新品",
		VideoType:   "一镜到底",
		Platform:    "抖音",
		AspectRatio: "9:16",
		VisualStyle: "realistic-photo",
		Tone:        "亲切自然",
	}
}

func TestGenerateScript_Success(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-script", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"场景1：清晨的咖啡馆"}`))
	}))
	defer srv.Close()

	script, err := newTestClient(srv).GenerateScript(context.Background(), validScriptRequest())
	require.NoError(t, err)
	assert.Equal(t, "场景1：清晨的咖啡馆", script)
	assert.Equal(t, map[string]string{
		"brand":        "晨光咖啡",
		"topic":        "冷萃新品",
		"video_type":   "一镜到底",
		"platform":     "抖音",
		"aspect_ratio": "9:16",
		"visual_style": "realistic-photo",
		"tone":         "亲切自然",
	}, got)
}

func TestGenerateScript_MissingFieldsNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	req := validScriptRequest()
	req.Topic = "  "
	req.Tone = ""
	_, err := newTestClient(srv).GenerateScript(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, apperr.Display(err), "topic, tone")
	assert.False(t, called)
}

func TestGenerateScript_StatusErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"model overloaded"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GenerateScript(context.Background(), validScriptRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
	assert.Contains(t, apperr.Display(err), "http 500: model overloaded")
}

func TestGenerateScript_MissingResultIsShapeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"script":"wrong key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GenerateScript(context.Background(), validScriptRequest())
	assert.True(t, errors.Is(err, apperr.ErrUpstreamShape))
}

func TestGenerateScript_InvalidJSONIsShapeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GenerateScript(context.Background(), validScriptRequest())
	assert.True(t, errors.Is(err, apperr.ErrUpstreamShape))
}

func TestGenerateScript_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := newTestClient(srv).GenerateScript(ctx, validScriptRequest())
	assert.True(t, errors.Is(err, apperr.ErrUpstreamTimeout))
}

func TestGenerateScript_Mock(t *testing.T) {
	c := NewClient(Options{Mock: true})
	script, err := c.GenerateScript(context.Background(), validScriptRequest())
	require.NoError(t, err)
	assert.Contains(t, script, "晨光咖啡")
}

func TestStatusError(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"bad prompt"}`, "http 422: bad prompt"},
		{"detail object", `{"detail":[{"loc":["body","brand"]}]}`, `http 422: [{"loc":["body","brand"]}]`},
		{"error field", `{"error":"quota exceeded"}`, "http 422: quota exceeded"},
		{"plain text", "upstream exploded", "http 422: upstream exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := statusError(http.StatusUnprocessableEntity, []byte(tc.body))
			assert.Equal(t, tc.want, apperr.AsAppError(err).Detail)
		})
	}

	long := statusError(http.StatusBadGateway, []byte(strings.Repeat("x", 1000)))
	assert.LessOrEqual(t, len(apperr.AsAppError(long).Detail), len("http 502: ")+300)
}

func TestStatusError_TruncatesOnRuneBoundary(t *testing.T) {
	body := []byte(`{"detail":"` + strings.Repeat("错", 200) + `"}`)
	detail := apperr.AsAppError(statusError(http.StatusBadGateway, body)).Detail

	assert.True(t, utf8.ValidString(detail))
	assert.Equal(t, "http 502: "+strings.Repeat("错", 100), detail)

	assert.Equal(t, "ab", truncate("ab", 5))
	assert.Equal(t, "a", truncate("a错", 3))
	assert.Equal(t, "", truncate("错", 2))
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, ref, want string
	}{
		{"https://img.example.com", "static/a.png", "https://img.example.com/static/a.png"},
		{"https://img.example.com", "/static/a.png", "https://img.example.com/static/a.png"},
		{"https://img.example.com/api", "static/a.png", "https://img.example.com/api/static/a.png"},
		{"https://img.example.com", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
	}
	for _, tc := range cases {
		got, err := resolveURL(tc.base, tc.ref)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := resolveURL("https://img.example.com", " ")
	assert.Error(t, err)
}

func TestCacheBust(t *testing.T) {
	c := NewClient(Options{})
	c.now = func() time.Time { return time.Unix(0, 1700) }

	assert.Equal(t, "https://img.example.com/a.png?v=1700", c.cacheBust("https://img.example.com/a.png"))
	assert.Equal(t, "https://img.example.com/a.png?size=l&v=1700", c.cacheBust("https://img.example.com/a.png?size=l"))
	assert.Equal(t, "https://img.example.com/a.png?v=1700", c.cacheBust("https://img.example.com/a.png?v=1"))
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	data, contentType, err := c.FetchImage(context.Background(), srv.URL+"/a.png?v=1")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)
	assert.Equal(t, "image/png", contentType)

	_, _, err = c.FetchImage(context.Background(), srv.URL+"/missing.png")
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}
