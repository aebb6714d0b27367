// Package wizard 实现向导控制器：步骤状态机、表单数据与生成产物
package wizard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/genclient"
	"scriptwizard/internal/metrics"
	"scriptwizard/internal/model"
	"scriptwizard/internal/service"
)

// ScriptFailurePrefix 生成失败时写入脚本栏位的前缀
const ScriptFailurePrefix = "脚本生成失败："

const (
	opScript      = "generate_script"
	opRegenScript = "regenerate_script"
	opImages      = "generate_images"
	opRegenImage  = "regenerate_image"
	opDownload    = "download_images"
	opVideo       = "generate_video"
)

// ScriptService 脚本生成服务
type ScriptService interface {
	GenerateScript(ctx context.Context, req genclient.ScriptRequest) (string, error)
}

// ImageService 图片生成、编辑与拉取
type ImageService interface {
	ExtractThenGenerate(ctx context.Context, req genclient.ImageBatchRequest) (*genclient.ImageBatch, error)
	EditImage(ctx context.Context, index int, prompt string, image []byte, fileName string) (*genclient.GeneratedImage, error)
	FetchImage(ctx context.Context, rawURL string) ([]byte, string, error)
}

// VideoService 两阶段影片生成
type VideoService interface {
	Run(ctx context.Context, in service.VideoInput) (string, error)
}

// Options 控制器参数
type Options struct {
	ScriptTimeout       time.Duration
	ImageTimeout        time.Duration
	EditTimeout         time.Duration
	VideoTimeout        time.Duration
	MaxScriptRegenerate int
	ImagesPerPrompt     int
	ImageStartIndex     int
}

// DefaultOptions 与默认配置一致
func DefaultOptions() Options {
	return Options{
		ScriptTimeout:       2 * time.Minute,
		ImageTimeout:        5 * time.Minute,
		EditTimeout:         2 * time.Minute,
		VideoTimeout:        10 * time.Minute,
		MaxScriptRegenerate: 3,
		ImagesPerPrompt:     1,
		ImageStartIndex:     1,
	}
}

// Controller 单个向导会话。表单与产物只能通过这里的方法修改；
// 外部调用期间不持有锁，不同图片的重新生成可以并发进行
type Controller struct {
	mu sync.Mutex

	id   string
	step model.Step
	form model.FormData

	script       string
	scriptFailed bool
	scriptRegens int

	images      []model.ImageRecord
	imageErrors []string
	// imageEpoch 每次整组图片替换时递增，用于丢弃过期的单张重新生成结果
	imageEpoch int

	videoURL string

	generating   string
	regenerating map[int]bool
	status       string
	lastActive   time.Time

	scriptSvc ScriptService
	imageSvc  ImageService
	videoSvc  VideoService
	opts      Options
	log       *logrus.Entry
	now       func() time.Time
}

// NewController 创建处于第一步、表单为默认值的控制器
func NewController(id string, scripts ScriptService, images ImageService, video VideoService, opts Options) *Controller {
	return &Controller{
		id:           id,
		step:         model.FirstStep,
		form:         model.NewFormData(),
		regenerating: make(map[int]bool),
		scriptSvc:    scripts,
		imageSvc:     images,
		videoSvc:     video,
		opts:         opts,
		log:          logrus.WithField("session_id", id),
		now:          time.Now,
		lastActive:   time.Now(),
	}
}

func (c *Controller) ID() string {
	return c.id
}

// Step 当前步骤
func (c *Controller) Step() model.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Advance 当前步骤条件满足时前进一步；已在最后一步时不做任何事
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	if c.step >= model.LastStep {
		return nil
	}
	if unmet := c.unmetLocked(); len(unmet) > 0 {
		return apperr.ErrStepIncomplete.WithDetail(strings.Join(unmet, ", "))
	}
	c.step++
	c.status = ""
	return nil
}

// Retreat 后退一步；已在第一步时不做任何事
func (c *Controller) Retreat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	if c.step > model.FirstStep {
		c.step--
		c.status = ""
	}
}

// JumpTo 只允许回到已到达过的步骤，其余情况不做任何事
func (c *Controller) JumpTo(step model.Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	if step < model.FirstStep || step > c.step {
		return false
	}
	c.step = step
	c.status = ""
	return true
}

// UpdateField 合并单个字段
func (c *Controller) UpdateField(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	return c.form.UpdateField(key, value)
}

// UpdateFields 浅合并多个字段，后写覆盖
func (c *Controller) UpdateFields(partial map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	return c.form.UpdateFields(partial)
}

// Form 表单副本
func (c *Controller) Form() model.FormData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Clone()
}

// GenerateScript 用表单生成脚本。必填字段缺失时不发出请求、脚本栏位不变；
// 成功后从风格偏好步骤前进到脚本步骤；失败时在脚本栏位写入失败信息且不前进。
// 在脚本步骤之后调用不会重置重新生成次数
func (c *Controller) GenerateScript(ctx context.Context) (err error) {
	defer func() { metrics.ObserveOperation(opScript, err) }()

	c.mu.Lock()
	req := c.scriptRequestLocked()
	if missing := req.Missing(); len(missing) > 0 {
		err = apperr.ErrValidation.WithDetail(strings.Join(missing, ", "))
		c.status = apperr.Display(err)
		c.mu.Unlock()
		return err
	}
	if err = c.beginLocked(opScript); err != nil {
		c.mu.Unlock()
		return err
	}
	fromStyle := c.step == model.StepVisualStyle
	c.mu.Unlock()

	script, err := c.callScript(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
	if err != nil {
		c.script = ScriptFailurePrefix + apperr.Display(err)
		c.scriptFailed = true
		c.status = c.script
		c.log.WithError(err).Warn("script generation failed")
		return err
	}
	c.script = script
	c.scriptFailed = false
	c.status = "脚本生成完成"
	// 只有从风格偏好步骤重新进入脚本步骤才重置重新生成次数
	if fromStyle {
		c.scriptRegens = 0
	}
	if c.step == model.StepVisualStyle {
		c.step++
	}
	c.log.WithField("chars", len(script)).Info("script generated")
	return nil
}

// RegenerateScript 重新生成脚本，最多 MaxScriptRegenerate 次；
// 失败时保留之前可用的脚本
func (c *Controller) RegenerateScript(ctx context.Context) (err error) {
	defer func() { metrics.ObserveOperation(opRegenScript, err) }()

	c.mu.Lock()
	if c.script == "" {
		c.mu.Unlock()
		return apperr.ErrStepIncomplete.WithDetail("script")
	}
	if c.scriptRegens >= c.opts.MaxScriptRegenerate {
		c.mu.Unlock()
		return apperr.ErrLimitReached
	}
	req := c.scriptRequestLocked()
	if missing := req.Missing(); len(missing) > 0 {
		c.mu.Unlock()
		return apperr.ErrValidation.WithDetail(strings.Join(missing, ", "))
	}
	if err = c.beginLocked(opRegenScript); err != nil {
		c.mu.Unlock()
		return err
	}
	c.scriptRegens++
	c.mu.Unlock()

	script, err := c.callScript(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
	if err != nil {
		if !c.scriptReadyLocked() {
			c.script = ScriptFailurePrefix + apperr.Display(err)
			c.scriptFailed = true
		}
		c.status = ScriptFailurePrefix + apperr.Display(err)
		return err
	}
	c.script = script
	c.scriptFailed = false
	c.status = fmt.Sprintf("脚本已重新生成（%d/%d）", c.scriptRegens, c.opts.MaxScriptRegenerate)
	return nil
}

// CanRegenerateScript 重新生成按钮是否可用
func (c *Controller) CanRegenerateScript() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.script != "" && c.generating == "" && c.scriptRegens < c.opts.MaxScriptRegenerate
}

// EditScript 保存用户对脚本的修改
func (c *Controller) EditScript(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	if c.generating == opScript || c.generating == opRegenScript {
		return apperr.ErrBusy
	}
	if strings.TrimSpace(text) == "" {
		return apperr.ErrValidation.WithDetail("script")
	}
	c.script = text
	c.scriptFailed = false
	return nil
}

// ScriptDownload 返回可下载的脚本；脚本不存在或为失败信息时不可下载
func (c *Controller) ScriptDownload() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.scriptReadyLocked() {
		return "", apperr.ErrStepIncomplete.WithDetail("script")
	}
	return c.script, nil
}

func (c *Controller) callScript(ctx context.Context, req genclient.ScriptRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, c.opts.ScriptTimeout)
	defer cancel()
	script, err := c.scriptSvc.GenerateScript(ctx, req)
	if err != nil {
		return "", normalizeErr(ctx, err)
	}
	if strings.TrimSpace(script) == "" {
		return "", apperr.ErrUpstreamShape.WithDetail("empty script")
	}
	return script, nil
}

func (c *Controller) scriptRequestLocked() genclient.ScriptRequest {
	return genclient.ScriptRequest{
		Brand:       c.form.Brand,
		Topic:       c.form.Topic,
		VideoType:   c.form.VideoType,
		Platform:    c.form.TargetPlatform,
		AspectRatio: c.form.AspectRatio,
		VisualStyle: c.form.VisualStyle,
		Tone:        c.form.Tone,
	}
}

// GenerateVideo 提取提示词后与整组图片合成影片
func (c *Controller) GenerateVideo(ctx context.Context) (err error) {
	defer func() { metrics.ObserveOperation(opVideo, err) }()

	c.mu.Lock()
	if !c.scriptReadyLocked() {
		c.mu.Unlock()
		return apperr.ErrValidation.WithDetail("script")
	}
	if len(c.images) == 0 {
		c.mu.Unlock()
		return apperr.ErrValidation.WithDetail("images")
	}
	if err = c.beginLocked(opVideo); err != nil {
		c.mu.Unlock()
		return err
	}
	in := service.VideoInput{
		Script:      c.script,
		ImageURLs:   make([]string, 0, len(c.images)),
		AspectRatio: c.form.AspectRatio,
	}
	for _, img := range c.images {
		in.ImageURLs = append(in.ImageURLs, img.PublicURL)
	}
	c.status = "正在分析脚本并生成影片，可能需要几分钟"
	c.mu.Unlock()

	vctx, cancel := withTimeout(ctx, c.opts.VideoTimeout)
	defer cancel()
	url, err := c.videoSvc.Run(vctx, in)
	if err != nil {
		err = normalizeErr(vctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
	if err != nil {
		c.status = "影片生成失败：" + apperr.Display(err)
		c.log.WithError(err).Warn("video generation failed")
		return err
	}
	c.videoURL = url
	c.status = "影片生成完成"
	c.log.WithField("video_url", url).Info("video generated")
	return nil
}

// Snapshot 当前状态的只读副本
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	regen := make([]int, 0, len(c.regenerating))
	for i := range c.regenerating {
		regen = append(regen, i)
	}
	sort.Ints(regen)

	left := c.opts.MaxScriptRegenerate - c.scriptRegens
	if left < 0 {
		left = 0
	}
	return model.Snapshot{
		SessionID:          c.id,
		Step:               int(c.step),
		StepName:           c.step.String(),
		CanAdvance:         c.step < model.LastStep && len(c.unmetLocked()) == 0,
		Form:               c.form.Clone(),
		Script:             c.script,
		ScriptFailed:       c.scriptFailed,
		ScriptDownloadable: c.scriptReadyLocked(),
		ScriptRegenerated:  c.scriptRegens,
		ScriptRegenLeft:    left,
		Images:             append([]model.ImageRecord{}, c.images...),
		ImageErrors:        append([]string(nil), c.imageErrors...),
		VideoURL:           c.videoURL,
		Generating:         c.generating != "",
		RegeneratingImages: regen,
		Status:             c.status,
	}
}

// beginLocked 标记整批操作进行中；同一时间只允许一个整批操作
func (c *Controller) beginLocked(op string) error {
	c.touchLocked()
	if c.generating != "" {
		return apperr.ErrBusy.WithDetail(c.generating)
	}
	c.generating = op
	return nil
}

func (c *Controller) endLocked() {
	c.generating = ""
	c.touchLocked()
}

func (c *Controller) touchLocked() {
	c.lastActive = c.now()
}

// idle 是否空闲超过 ttl 且没有进行中的请求
func (c *Controller) idle(now time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generating != "" || len(c.regenerating) > 0 {
		return false
	}
	return now.Sub(c.lastActive) > ttl
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// normalizeErr 超时统一归类，其余保留原错误码
func normalizeErr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return apperr.ErrUpstreamTimeout.WithError(err)
	}
	app := apperr.AsAppError(err)
	if app.Code == apperr.CodeUnknown {
		return apperr.ErrUpstream.WithError(err)
	}
	return app
}
