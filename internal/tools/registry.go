package tools

import (
	"context"
	"sort"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Registry 按名称索引的工具集合
type Registry struct {
	tools map[string]einotool.InvokableTool
}

// NewRegistry 以工具自身 Info 中的名称注册
func NewRegistry(ctx context.Context, ts ...einotool.InvokableTool) (*Registry, error) {
	r := &Registry{tools: make(map[string]einotool.InvokableTool, len(ts))}
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		r.tools[info.Name] = t
	}
	return r, nil
}

func (r *Registry) Get(name string) (einotool.InvokableTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Infos 返回按名称排序的工具描述
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
