package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptwizard/internal/apperr"
)

func TestExtractThenGenerate_AbsolutizesAndCacheBusts(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract_then_generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"generate_result":{"results":[
			{"prompt":"开场","uploaded_urls":["static/scene_1.png"]},
			{"prompt":"特写","uploaded_urls":["/static/scene_2.png"]}
		]}}`))
	}))
	defer srv.Close()

	batch, err := newTestClient(srv).ExtractThenGenerate(context.Background(), ImageBatchRequest{Script: "脚本"})
	require.NoError(t, err)

	assert.Equal(t, "脚本", got["result"])
	assert.EqualValues(t, 1, got["images_per_prompt"])
	assert.Equal(t, "scene", got["naming"])

	require.Len(t, batch.Images, 2)
	assert.Equal(t, srv.URL+"/static/scene_1.png", batch.Images[0].PublicURL)
	assert.Equal(t, srv.URL+"/static/scene_1.png?v=42", batch.Images[0].DisplayURL)
	assert.Equal(t, "特写", batch.Images[1].Prompt)
	assert.Empty(t, batch.Failures)
}

func TestExtractThenGenerate_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generate_result":{"results":[
			{"prompt":"a","uploaded_urls":["static/1.png"]},
			{"prompt":"b","uploaded_urls":[],"errors":["content policy"]},
			{"prompt":"c","uploaded_urls":["static/3.png"]}
		]}}`))
	}))
	defer srv.Close()

	batch, err := newTestClient(srv).ExtractThenGenerate(context.Background(), ImageBatchRequest{Script: "脚本"})
	require.NoError(t, err)
	require.Len(t, batch.Images, 2)
	assert.Equal(t, "c", batch.Images[1].Prompt)
	assert.Equal(t, []string{"场景2: content policy"}, batch.Failures)
}

func TestExtractThenGenerate_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generate_result":{"results":[
			{"prompt":"a","uploaded_urls":[],"errors":["quota"]},
			{"prompt":"b","uploaded_urls":[]}
		]}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ExtractThenGenerate(context.Background(), ImageBatchRequest{Script: "脚本"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
	assert.Contains(t, apperr.Display(err), "场景1: quota")
	assert.Contains(t, apperr.Display(err), "场景2: no image produced")
}

func TestExtractThenGenerate_MissingGenerateResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"extract_result":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ExtractThenGenerate(context.Background(), ImageBatchRequest{Script: "脚本"})
	assert.True(t, errors.Is(err, apperr.ErrUpstreamShape))
}

func TestExtractThenGenerate_Mock(t *testing.T) {
	c := NewClient(Options{ImageBase: "https://img.example.com", Mock: true})
	batch, err := c.ExtractThenGenerate(context.Background(), ImageBatchRequest{Script: "脚本", StartIndex: 1})
	require.NoError(t, err)
	require.Len(t, batch.Images, 4)
	assert.Equal(t, "https://img.example.com/static/mock/scene_1_1.png", batch.Images[0].PublicURL)
}

func TestEditImage_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/edit_image_store", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("target_index"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "加上晨光", r.FormValue("edit_prompt"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "scene_3.png", hdr.Filename)
		assert.Equal(t, "imagebytes", string(data))

		_, _ = w.Write([]byte(`{"uploaded_urls":["static/scene_3.png"]}`))
	}))
	defer srv.Close()

	img, err := newTestClient(srv).EditImage(context.Background(), 2, "加上晨光", []byte("imagebytes"), "scene_3.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/static/scene_3.png", img.PublicURL)
	assert.Equal(t, srv.URL+"/static/scene_3.png?v=42", img.DisplayURL)
	assert.Equal(t, "加上晨光", img.Prompt)
}

func TestEditImage_Validation(t *testing.T) {
	c := NewClient(Options{ImageBase: "https://img.example.com"})

	_, err := c.EditImage(context.Background(), 0, " ", []byte("x"), "a.png")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = c.EditImage(context.Background(), 0, "prompt", nil, "a.png")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestEditImage_EmptyUploadedURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uploaded_urls":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).EditImage(context.Background(), 0, "p", []byte("x"), "a.png")
	assert.True(t, errors.Is(err, apperr.ErrUpstreamShape))
}
