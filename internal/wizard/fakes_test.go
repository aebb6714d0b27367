package wizard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptwizard/internal/genclient"
	"scriptwizard/internal/model"
	"scriptwizard/internal/service"
)

type fakeScripts struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req genclient.ScriptRequest) (string, error)
}

func (f *fakeScripts) GenerateScript(ctx context.Context, req genclient.ScriptRequest) (string, error) {
	n := f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return fmt.Sprintf("script #%d for %s", n, req.Brand), nil
}

type fakeImages struct {
	mu        sync.Mutex
	batches   atomic.Int32
	edits     []int
	batchFn   func(ctx context.Context, req genclient.ImageBatchRequest) (*genclient.ImageBatch, error)
	editFn    func(ctx context.Context, index int, prompt string) (*genclient.GeneratedImage, error)
	fetchFn   func(ctx context.Context, rawURL string) ([]byte, string, error)
	fetchURLs []string
}

func (f *fakeImages) ExtractThenGenerate(ctx context.Context, req genclient.ImageBatchRequest) (*genclient.ImageBatch, error) {
	n := f.batches.Add(1)
	if f.batchFn != nil {
		return f.batchFn(ctx, req)
	}
	return makeBatch(int(n), 4), nil
}

func (f *fakeImages) EditImage(ctx context.Context, index int, prompt string, image []byte, fileName string) (*genclient.GeneratedImage, error) {
	f.mu.Lock()
	f.edits = append(f.edits, index)
	f.mu.Unlock()
	if f.editFn != nil {
		return f.editFn(ctx, index, prompt)
	}
	u := fmt.Sprintf("https://img.test/edited_%d.png", index)
	return &genclient.GeneratedImage{Prompt: prompt, PublicURL: u, DisplayURL: u + "?v=1"}, nil
}

func (f *fakeImages) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	f.mu.Lock()
	f.fetchURLs = append(f.fetchURLs, rawURL)
	f.mu.Unlock()
	if f.fetchFn != nil {
		return f.fetchFn(ctx, rawURL)
	}
	return []byte("png:" + rawURL), "image/png", nil
}

// makeBatch 第 gen 批、共 n 张图片
func makeBatch(gen, n int) *genclient.ImageBatch {
	b := &genclient.ImageBatch{}
	for i := 0; i < n; i++ {
		u := fmt.Sprintf("https://img.test/gen%d/scene_%d.png", gen, i+1)
		b.Images = append(b.Images, genclient.GeneratedImage{
			Prompt:     fmt.Sprintf("prompt %d", i+1),
			PublicURL:  u,
			DisplayURL: u + "?v=1",
		})
	}
	return b
}

type fakeVideo struct {
	calls atomic.Int32
	last  service.VideoInput
	fn    func(ctx context.Context, in service.VideoInput) (string, error)
}

func (f *fakeVideo) Run(ctx context.Context, in service.VideoInput) (string, error) {
	f.calls.Add(1)
	f.last = in
	if f.fn != nil {
		return f.fn(ctx, in)
	}
	return "https://video.test/final.mp4", nil
}

type harness struct {
	ctrl    *Controller
	scripts *fakeScripts
	images  *fakeImages
	video   *fakeVideo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{scripts: &fakeScripts{}, images: &fakeImages{}, video: &fakeVideo{}}
	h.ctrl = NewController("test", h.scripts, h.images, h.video, DefaultOptions())
	return h
}

// fillForm 填好所有必填字段
func (h *harness) fillForm(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.UpdateFields(map[string]any{
		model.FieldBrand:          "晨光咖啡",
		model.FieldTopic:          "冷萃新品",
		model.FieldVideoType:      "一镜到底",
		model.FieldTargetPlatform: "抖音",
		model.FieldVisualStyle:    "realistic-photo",
	}))
}

// toStep 填表并前进到 step，必要时生成脚本与图片
func (h *harness) toStep(t *testing.T, step model.Step) {
	t.Helper()
	h.fillForm(t)
	ctx := context.Background()
	for h.ctrl.Step() < step {
		switch h.ctrl.Step() {
		case model.StepVisualStyle:
			require.NoError(t, h.ctrl.GenerateScript(ctx))
		case model.StepScriptReview:
			require.NoError(t, h.ctrl.GenerateImages(ctx))
		default:
			require.NoError(t, h.ctrl.Advance())
		}
	}
	require.Equal(t, step, h.ctrl.Step())
}

// memSink 内存中的下载目标
type memSink struct {
	files map[string][]byte
	fail  map[string]bool
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}, fail: map[string]bool{}}
}

func (s *memSink) Save(name string, data []byte) error {
	if s.fail[name] {
		return fmt.Errorf("disk full")
	}
	s.files[name] = data
	return nil
}
