package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"scriptwizard/internal/apperr"
)

// 表单字段键
const (
	FieldBrand           = "brand"
	FieldTopic           = "topic"
	FieldVideoType       = "videoType"
	FieldTargetPlatform  = "targetPlatform"
	FieldVisualStyle     = "visualStyle"
	FieldVideoTechniques = "videoTechniques"
	FieldAspectRatio     = "aspectRatio"
	FieldSceneCount      = "sceneCount"
	FieldTone            = "tone"
)

const (
	DefaultAspectRatio = "16:9"
	DefaultSceneCount  = 4
	DefaultTone        = "亲切自然"
	MaxSceneCount      = 12
)

// FormData 向导收集的全部用户输入，键固定
type FormData struct {
	Brand           string   `json:"brand"`
	Topic           string   `json:"topic"`
	VideoType       string   `json:"videoType"`
	TargetPlatform  string   `json:"targetPlatform"`
	VisualStyle     string   `json:"visualStyle"`
	VideoTechniques []string `json:"videoTechniques"`
	AspectRatio     string   `json:"aspectRatio"`
	SceneCount      int      `json:"sceneCount"`
	Tone            string   `json:"tone"`
}

// NewFormData 返回带默认值的表单
func NewFormData() FormData {
	return FormData{
		VideoTechniques: []string{},
		AspectRatio:     DefaultAspectRatio,
		SceneCount:      DefaultSceneCount,
		Tone:            DefaultTone,
	}
}

type fieldSetter func(f *FormData, v any) error

var fieldSetters = map[string]fieldSetter{
	FieldBrand:          stringSetter(func(f *FormData) *string { return &f.Brand }),
	FieldTopic:          stringSetter(func(f *FormData) *string { return &f.Topic }),
	FieldVideoType:      stringSetter(func(f *FormData) *string { return &f.VideoType }),
	FieldTargetPlatform: stringSetter(func(f *FormData) *string { return &f.TargetPlatform }),
	FieldVisualStyle:    stringSetter(func(f *FormData) *string { return &f.VisualStyle }),
	FieldAspectRatio:    stringSetter(func(f *FormData) *string { return &f.AspectRatio }),
	FieldTone:           stringSetter(func(f *FormData) *string { return &f.Tone }),
	FieldVideoTechniques: func(f *FormData, v any) error {
		list, err := toStringSlice(v)
		if err != nil {
			return err
		}
		f.VideoTechniques = list
		return nil
	},
	FieldSceneCount: func(f *FormData, v any) error {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		if n < 1 || n > MaxSceneCount {
			return fmt.Errorf("must be between 1 and %d", MaxSceneCount)
		}
		f.SceneCount = n
		return nil
	},
}

func stringSetter(field func(f *FormData) *string) fieldSetter {
	return func(f *FormData, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		*field(f) = s
		return nil
	}
}

// Fields 返回全部合法字段键
func Fields() []string {
	return []string{
		FieldBrand, FieldTopic, FieldVideoType, FieldTargetPlatform, FieldVisualStyle,
		FieldVideoTechniques, FieldAspectRatio, FieldSceneCount, FieldTone,
	}
}

// UpdateField 更新单个字段，其余字段保持不变
func (f *FormData) UpdateField(key string, value any) error {
	set, ok := fieldSetters[key]
	if !ok {
		return apperr.ErrInvalidParam.WithDetail("未知字段 " + key)
	}
	if err := set(f, value); err != nil {
		return apperr.ErrInvalidParam.WithDetail(fmt.Sprintf("字段 %s: %v", key, err))
	}
	return nil
}

// UpdateFields 浅合并多个字段；任一字段非法时不做任何修改
func (f *FormData) UpdateFields(partial map[string]any) error {
	next := f.Clone()
	for key, value := range partial {
		if err := next.UpdateField(key, value); err != nil {
			return err
		}
	}
	*f = next
	return nil
}

// Clone 深拷贝
func (f FormData) Clone() FormData {
	cp := f
	cp.VideoTechniques = append([]string{}, f.VideoTechniques...)
	return cp
}

// Missing 返回 keys 中为空的字段
func (f FormData) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if f.isEmpty(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

func (f FormData) isEmpty(key string) bool {
	switch key {
	case FieldBrand:
		return blank(f.Brand)
	case FieldTopic:
		return blank(f.Topic)
	case FieldVideoType:
		return blank(f.VideoType)
	case FieldTargetPlatform:
		return blank(f.TargetPlatform)
	case FieldVisualStyle:
		return blank(f.VisualStyle)
	case FieldAspectRatio:
		return blank(f.AspectRatio)
	case FieldTone:
		return blank(f.Tone)
	case FieldVideoTechniques:
		return len(f.VideoTechniques) == 0
	case FieldSceneCount:
		return f.SceneCount <= 0
	}
	return true
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func toStringSlice(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("expected string element, got %T", it)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if t == "" {
			return []string{}, nil
		}
		return []string{t}, nil
	}
	return nil, fmt.Errorf("expected string array, got %T", v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("expected integer, got %v", t)
		}
		return int(t), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
