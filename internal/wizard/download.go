package wizard

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/metrics"
)

// Sink 图片下载的落地位置
type Sink interface {
	Save(name string, data []byte) error
}

// DirSink 写入本地目录
type DirSink struct {
	Dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirSink{Dir: dir}, nil
}

func (s *DirSink) Save(name string, data []byte) error {
	return os.WriteFile(filepath.Join(s.Dir, filepath.Base(name)), data, 0o644)
}

// ZipSink 写入 zip 流，用完需要 Close
type ZipSink struct {
	zw *zip.Writer
}

func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w)}
}

func (s *ZipSink) Save(name string, data []byte) error {
	f, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

func (s *ZipSink) Close() error {
	return s.zw.Close()
}

// DownloadReport 批量下载统计
type DownloadReport struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Files     []string `json:"files"`
	Errors    []string `json:"errors,omitempty"`
}

// DownloadAllImages 逐张拉取规范地址并写入 sink。
// 单张失败只计数，不中断其余图片
func (c *Controller) DownloadAllImages(ctx context.Context, sink Sink) (report *DownloadReport, err error) {
	defer func() { metrics.ObserveOperation(opDownload, err) }()

	c.mu.Lock()
	c.touchLocked()
	urls := make([]string, 0, len(c.images))
	for _, img := range c.images {
		urls = append(urls, img.PublicURL)
	}
	c.mu.Unlock()

	if len(urls) == 0 {
		return nil, apperr.ErrStepIncomplete.WithDetail("images")
	}

	report = &DownloadReport{Total: len(urls)}
	for i, u := range urls {
		if ctx.Err() != nil {
			report.Failed += len(urls) - i
			report.Errors = append(report.Errors, ctx.Err().Error())
			break
		}
		data, contentType, ferr := c.imageSvc.FetchImage(ctx, u)
		if ferr == nil {
			name := fmt.Sprintf("scene_%02d%s", i+1, imageExt(u, contentType))
			if ferr = sink.Save(name, data); ferr == nil {
				report.Succeeded++
				report.Files = append(report.Files, name)
				continue
			}
		}
		report.Failed++
		report.Errors = append(report.Errors, fmt.Sprintf("场景%d: %s", i+1, apperr.Display(ferr)))
	}

	c.mu.Lock()
	c.status = fmt.Sprintf("下载完成：成功 %d 张，失败 %d 张", report.Succeeded, report.Failed)
	c.mu.Unlock()
	c.log.WithField("succeeded", report.Succeeded).WithField("failed", report.Failed).Info("images downloaded")
	return report, nil
}

// imageExt 优先按 Content-Type 取扩展名，其次取地址后缀
func imageExt(rawURL, contentType string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "image/png":
				return ".png"
			case "image/jpeg":
				return ".jpg"
			case "image/webp":
				return ".webp"
			}
		}
	}
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if ext := strings.ToLower(path.Ext(p)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".png"
}
