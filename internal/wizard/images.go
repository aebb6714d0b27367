package wizard

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/genclient"
	"scriptwizard/internal/metrics"
	"scriptwizard/internal/model"
)

// GenerateImages 从脚本批量生成场景图片，结果按场景数截断后整组替换。
// 部分场景失败时保留成功的图片并记录失败信息
func (c *Controller) GenerateImages(ctx context.Context) (err error) {
	defer func() { metrics.ObserveOperation(opImages, err) }()

	c.mu.Lock()
	if !c.scriptReadyLocked() {
		c.mu.Unlock()
		return apperr.ErrValidation.WithDetail("script")
	}
	if err = c.beginLocked(opImages); err != nil {
		c.mu.Unlock()
		return err
	}
	req := genclient.ImageBatchRequest{
		Script:          c.script,
		ImagesPerPrompt: c.opts.ImagesPerPrompt,
		StartIndex:      c.opts.ImageStartIndex,
		Naming:          "scene",
	}
	sceneCount := c.form.SceneCount
	c.status = "正在生成场景图片"
	c.mu.Unlock()

	ictx, cancel := withTimeout(ctx, c.opts.ImageTimeout)
	defer cancel()
	batch, err := c.imageSvc.ExtractThenGenerate(ictx, req)
	if err != nil {
		err = normalizeErr(ictx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
	if err != nil {
		c.status = "图片生成失败：" + apperr.Display(err)
		c.log.WithError(err).Warn("image generation failed")
		return err
	}

	records := make([]model.ImageRecord, 0, len(batch.Images))
	for _, img := range batch.Images {
		if sceneCount > 0 && len(records) >= sceneCount {
			break
		}
		records = append(records, model.ImageRecord{
			DisplayURL: img.DisplayURL,
			Prompt:     img.Prompt,
			PublicURL:  img.PublicURL,
		})
	}
	if len(records) == 0 {
		err = apperr.ErrUpstream.WithDetail("no images returned")
		c.status = "图片生成失败：" + apperr.Display(err)
		return err
	}
	c.images = records
	c.imageErrors = append([]string(nil), batch.Failures...)
	c.imageEpoch++
	if len(c.imageErrors) > 0 {
		c.status = fmt.Sprintf("已生成 %d 张图片，%d 个场景失败", len(records), len(c.imageErrors))
	} else {
		c.status = fmt.Sprintf("已生成 %d 张图片", len(records))
	}
	if c.step == model.StepScriptReview {
		c.step++
	}
	c.log.WithField("images", len(records)).Info("images generated")
	return nil
}

// SetImagePrompt 修改某张图片的提示词，不触发生成
func (c *Controller) SetImagePrompt(index int, prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	if index < 0 || index >= len(c.images) {
		return apperr.ErrNotFound.WithDetail(fmt.Sprintf("image %d", index))
	}
	c.images[index].Prompt = prompt
	return nil
}

// RegenerateImage 以新提示词编辑第 index 张图片，只替换该位置。
// 同一张图片同时只能有一个请求；期间若整组图片被替换，结果作废。
// 失败时该位置（包括提示词）保持原样
func (c *Controller) RegenerateImage(ctx context.Context, index int, prompt string) (err error) {
	defer func() { metrics.ObserveOperation(opRegenImage, err) }()

	c.mu.Lock()
	if index < 0 || index >= len(c.images) {
		c.mu.Unlock()
		return apperr.ErrNotFound.WithDetail(fmt.Sprintf("image %d", index))
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = c.images[index].Prompt
	}
	if strings.TrimSpace(prompt) == "" {
		c.mu.Unlock()
		return apperr.ErrValidation.WithDetail("prompt")
	}
	if c.generating == opImages {
		c.mu.Unlock()
		return apperr.ErrBusy.WithDetail(opImages)
	}
	if c.regenerating[index] {
		c.mu.Unlock()
		return apperr.ErrBusy.WithDetail(fmt.Sprintf("image %d", index))
	}
	c.regenerating[index] = true
	current := c.images[index]
	epoch := c.imageEpoch
	c.touchLocked()
	c.mu.Unlock()

	ectx, cancel := withTimeout(ctx, c.opts.EditTimeout)
	defer cancel()
	updated, err := c.editImage(ectx, index, prompt, current)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.regenerating, index)
	c.touchLocked()
	if err != nil {
		c.status = fmt.Sprintf("第 %d 张图片重新生成失败：%s", index+1, apperr.Display(err))
		c.log.WithError(err).WithField("index", index).Warn("image regeneration failed")
		return err
	}
	if epoch != c.imageEpoch || index >= len(c.images) {
		return apperr.ErrStale
	}
	c.images[index] = model.ImageRecord{
		DisplayURL: updated.DisplayURL,
		Prompt:     prompt,
		PublicURL:  updated.PublicURL,
	}
	c.status = fmt.Sprintf("第 %d 张图片已更新", index+1)
	return nil
}

func (c *Controller) editImage(ctx context.Context, index int, prompt string, current model.ImageRecord) (*genclient.GeneratedImage, error) {
	data, _, err := c.imageSvc.FetchImage(ctx, current.DisplayURL)
	if err != nil {
		return nil, normalizeErr(ctx, err)
	}
	updated, err := c.imageSvc.EditImage(ctx, index, prompt, data, imageFileName(current.PublicURL, index))
	if err != nil {
		return nil, normalizeErr(ctx, err)
	}
	return updated, nil
}

// imageFileName 取地址路径的最后一段，取不到时按场景编号命名
func imageFileName(rawURL string, index int) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("scene_%d.png", index+1)
}
