// Package callback eino 编排的节点级日志
package callback

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"
)

type startTimeKey struct{}

// NewLogHandler 为一条编排创建日志回调，节点开始、结束、出错各记一条
func NewLogHandler(chain string) einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			entry(chain, info).Debug("eino node start")
			return context.WithValue(ctx, startTimeKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			e := entry(chain, info).WithField("elapsed", elapsed(ctx))
			if info != nil && info.Component == components.ComponentOfChatModel {
				if out := model.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
					e = e.WithFields(logrus.Fields{
						"prompt_tokens":     out.TokenUsage.PromptTokens,
						"completion_tokens": out.TokenUsage.CompletionTokens,
					})
				}
			}
			e.Info("eino node done")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			entry(chain, info).WithField("elapsed", elapsed(ctx)).WithError(err).Warn("eino node failed")
			return ctx
		}).
		Build()
}

func entry(chain string, info *einocb.RunInfo) *logrus.Entry {
	fields := logrus.Fields{"chain": chain}
	if info != nil {
		fields["node"] = info.Name
		fields["component"] = string(info.Component)
	}
	return logrus.WithFields(fields)
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start).Round(time.Millisecond)
}
