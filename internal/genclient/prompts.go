package genclient

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PromptsKind 提示词提取结果的形态
type PromptsKind int

const (
	PromptsUnknown PromptsKind = iota
	PromptsSingle
	PromptsList
)

// promptKeys 对象形态响应中可能承载提示词的键，按优先级排列
var promptKeys = []string{"prompts", "video_prompts", "prompt_list", "result"}

// Prompts 提示词提取结果：Single(string) | List([]string) | Unknown(raw)
type Prompts struct {
	Kind   PromptsKind
	Single string
	List   []string
	Raw    json.RawMessage
}

// Empty 是否没有可用的提示词
func (p Prompts) Empty() bool {
	switch p.Kind {
	case PromptsSingle:
		return strings.TrimSpace(p.Single) == ""
	case PromptsList:
		return len(p.List) == 0
	}
	return true
}

// Items 统一为列表形式
func (p Prompts) Items() []string {
	switch p.Kind {
	case PromptsSingle:
		return []string{p.Single}
	case PromptsList:
		return append([]string{}, p.List...)
	}
	return nil
}

// Payload 作为影片合成请求中 prompts 字段的值
func (p Prompts) Payload() any {
	switch p.Kind {
	case PromptsSingle:
		return p.Single
	case PromptsList:
		return p.List
	}
	return nil
}

// NormalizePrompts 把字符串、字符串数组、或包含提示词列表的对象统一成 Prompts
func NormalizePrompts(raw []byte) Prompts {
	raw = bytes.TrimSpace(raw)
	unknown := Prompts{Kind: PromptsUnknown, Raw: append(json.RawMessage{}, raw...)}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return unknown
	}
	if p, ok := fromValue(v); ok {
		return p
	}
	if obj, ok := v.(map[string]any); ok {
		for _, key := range promptKeys {
			if inner, exists := obj[key]; exists {
				if p, ok := fromValue(inner); ok {
					return p
				}
			}
		}
	}
	return unknown
}

func fromValue(v any) (Prompts, bool) {
	switch t := v.(type) {
	case string:
		return Prompts{Kind: PromptsSingle, Single: t}, true
	case []any:
		list := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return Prompts{}, false
			}
			list = append(list, s)
		}
		return Prompts{Kind: PromptsList, List: list}, true
	}
	return Prompts{}, false
}
