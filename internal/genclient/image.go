package genclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"scriptwizard/internal/apperr"
)

// ImageBatchRequest 批量图片生成请求
type ImageBatchRequest struct {
	Script          string `json:"result"`
	ImagesPerPrompt int    `json:"images_per_prompt"`
	StartIndex      int    `json:"start_index"`
	Naming          string `json:"naming"`
}

// PromptResult 单个提示词的生成结果
type PromptResult struct {
	Prompt       string   `json:"prompt"`
	UploadedURLs []string `json:"uploaded_urls"`
	Errors       []string `json:"errors"`
}

type imageBatchResponse struct {
	GenerateResult *struct {
		Results []PromptResult `json:"results"`
	} `json:"generate_result"`
}

// GeneratedImage 已处理好地址的图片
type GeneratedImage struct {
	Prompt     string
	PublicURL  string
	DisplayURL string
}

// ImageBatch 批量生成结果，部分提示词失败属正常情况
type ImageBatch struct {
	Images []GeneratedImage
	// Failures 每个失败提示词的错误描述
	Failures []string
}

// ExtractThenGenerate 调用 POST /extract_then_generate
// 只有全部提示词都没有产出图片时才返回错误
func (c *Client) ExtractThenGenerate(ctx context.Context, req ImageBatchRequest) (*ImageBatch, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, apperr.ErrValidation.WithDetail("script")
	}
	if req.Naming == "" {
		req.Naming = "scene"
	}
	if req.ImagesPerPrompt <= 0 {
		req.ImagesPerPrompt = 1
	}

	var results []PromptResult
	if c.Mock {
		results = mockPromptResults(req)
	} else {
		var resp imageBatchResponse
		if err := c.postJSON(ctx, "extract_then_generate", c.ImageBase+"/extract_then_generate", req, &resp); err != nil {
			return nil, err
		}
		if resp.GenerateResult == nil {
			return nil, apperr.ErrUpstreamShape.WithDetail("missing generate_result")
		}
		results = resp.GenerateResult.Results
	}
	return c.collectImages(results)
}

func (c *Client) collectImages(results []PromptResult) (*ImageBatch, error) {
	batch := &ImageBatch{}
	for i, r := range results {
		if len(r.UploadedURLs) == 0 {
			reason := "no image produced"
			if len(r.Errors) > 0 {
				reason = strings.Join(r.Errors, "; ")
			}
			batch.Failures = append(batch.Failures, fmt.Sprintf("场景%d: %s", i+1, reason))
			logrus.WithFields(logrus.Fields{"prompt_index": i, "prompt": r.Prompt}).Warn("prompt produced no images: " + reason)
			continue
		}
		for _, rel := range r.UploadedURLs {
			abs, err := resolveURL(c.ImageBase, rel)
			if err != nil {
				batch.Failures = append(batch.Failures, fmt.Sprintf("场景%d: invalid url %q", i+1, rel))
				continue
			}
			batch.Images = append(batch.Images, GeneratedImage{
				Prompt:     r.Prompt,
				PublicURL:  abs,
				DisplayURL: c.cacheBust(abs),
			})
		}
	}
	if len(batch.Images) == 0 {
		detail := "no images produced"
		if len(batch.Failures) > 0 {
			detail = strings.Join(batch.Failures, " | ")
		}
		return nil, apperr.ErrUpstream.WithDetail(detail)
	}
	return batch, nil
}

type editImageResponse struct {
	UploadedURLs []string `json:"uploaded_urls"`
}

// EditImage 调用 POST /edit_image_store?target_index={i}
func (c *Client) EditImage(ctx context.Context, index int, prompt string, image []byte, fileName string) (*GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperr.ErrValidation.WithDetail("edit_prompt")
	}
	if len(image) == 0 {
		return nil, apperr.ErrValidation.WithDetail("file")
	}
	if fileName == "" {
		fileName = fmt.Sprintf("scene_%d.png", index+1)
	}

	var resp editImageResponse
	if c.Mock {
		resp.UploadedURLs = []string{fmt.Sprintf("static/mock/scene_%d.png", index+1)}
	} else {
		endpoint := c.ImageBase + "/edit_image_store?target_index=" + url.QueryEscape(strconv.Itoa(index))
		fields := map[string]string{"edit_prompt": prompt}
		if err := c.postMultipart(ctx, "edit_image", endpoint, fields, "file", fileName, image, &resp); err != nil {
			return nil, err
		}
	}
	if len(resp.UploadedURLs) == 0 {
		return nil, apperr.ErrUpstreamShape.WithDetail("missing uploaded_urls")
	}
	abs, err := resolveURL(c.ImageBase, resp.UploadedURLs[0])
	if err != nil {
		return nil, apperr.ErrUpstreamShape.WithError(err)
	}
	return &GeneratedImage{Prompt: prompt, PublicURL: abs, DisplayURL: c.cacheBust(abs)}, nil
}

// FetchImage 以二进制方式拉取图片
func (c *Client) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	if c.Mock {
		return mockPixel(), "image/png", nil
	}
	return c.fetchBinary(ctx, "fetch_image", rawURL)
}

func mockPromptResults(req ImageBatchRequest) []PromptResult {
	prompts := []string{"开场画面 - 品牌标志展示", "产品特写 - 细节展示", "使用情境 - 人物互动", "结尾画面 - 品牌信息"}
	out := make([]PromptResult, 0, len(prompts))
	for i, p := range prompts {
		urls := make([]string, 0, req.ImagesPerPrompt)
		for j := 0; j < req.ImagesPerPrompt; j++ {
			urls = append(urls, fmt.Sprintf("static/mock/%s_%d_%d.png", req.Naming, req.StartIndex+i, j+1))
		}
		out = append(out, PromptResult{Prompt: p, UploadedURLs: urls})
	}
	return out
}
