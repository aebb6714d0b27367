package model

// Step 向导步骤，取值范围 [StepCompanyInfo, StepVideoReview]
type Step int

const (
	StepCompanyInfo  Step = iota + 1 // 主题资讯
	StepVideoType                    // 影片需求
	StepVisualStyle                  // 风格偏好
	StepScriptReview                 // 脚本生成
	StepImageReview                  // 照片生成
	StepVideoReview                  // 影片生成
)

const (
	FirstStep = StepCompanyInfo
	LastStep  = StepVideoReview
	StepCount = int(LastStep)
)

var stepNames = map[Step]string{
	StepCompanyInfo:  "company_info",
	StepVideoType:    "video_type",
	StepVisualStyle:  "visual_style",
	StepScriptReview: "script_review",
	StepImageReview:  "image_review",
	StepVideoReview:  "video_review",
}

var stepLabels = map[Step]string{
	StepCompanyInfo:  "主题资讯",
	StepVideoType:    "影片需求",
	StepVisualStyle:  "风格偏好",
	StepScriptReview: "脚本生成",
	StepImageReview:  "照片生成",
	StepVideoReview:  "影片生成",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

// Label 步骤显示名称
func (s Step) Label() string {
	return stepLabels[s]
}

// Valid 是否为合法步骤
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// StepInfo 步骤描述
type StepInfo struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Label  string `json:"label"`
}

// Steps 返回全部步骤描述
func Steps() []StepInfo {
	out := make([]StepInfo, 0, StepCount)
	for s := FirstStep; s <= LastStep; s++ {
		out = append(out, StepInfo{Number: int(s), Name: s.String(), Label: s.Label()})
	}
	return out
}

// ImageRecord 生成图片记录
type ImageRecord struct {
	DisplayURL string `json:"display_url"` // 带缓存参数的展示地址
	Prompt     string `json:"prompt"`      // 可编辑提示词
	PublicURL  string `json:"public_url"`  // 规范地址，用于编辑与下载
}

// Option 选项目录项
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// VideoTypes 影片类型目录
var VideoTypes = []Option{
	{ID: "一镜到底", Label: "一镜到底"},
	{ID: "ASMR风格", Label: "ASMR风格"},
	{ID: "手持纪录感", Label: "手持纪录感"},
	{ID: "慢动作氛围", Label: "慢动作氛围"},
	{ID: "Split Screen 分割画面", Label: "Split Screen 分割画面"},
	{ID: "延迟摄影", Label: "延迟摄影"},
	{ID: "光影叙事", Label: "光影叙事"},
	{ID: "蒙太奇剪接", Label: "蒙太奇剪接"},
}

// VisualStyles 视觉风格目录
var VisualStyles = []Option{
	{ID: "realistic-photo", Label: "写实照片风格"},
	{ID: "3d-animation", Label: "3D动画风格"},
	{ID: "japanese-handdrawn", Label: "日式手绘风格"},
	{ID: "clay-animation", Label: "立体黏土风格"},
	{ID: "paper-cut", Label: "剪纸风格"},
}

// AspectRatios 画面比例目录
var AspectRatios = []Option{
	{ID: "9:16", Label: "9:16"},
	{ID: "16:9", Label: "16:9"},
	{ID: "1:1", Label: "1:1"},
	{ID: "3:4", Label: "3:4"},
	{ID: "4:3", Label: "4:3"},
}

// Snapshot 会话状态快照，供视图渲染
type Snapshot struct {
	SessionID          string        `json:"session_id,omitempty"`
	Step               int           `json:"step"`
	StepName           string        `json:"step_name"`
	CanAdvance         bool          `json:"can_advance"`
	Form               FormData      `json:"form"`
	Script             string        `json:"script"`
	ScriptFailed       bool          `json:"script_failed"`
	ScriptDownloadable bool          `json:"script_downloadable"`
	ScriptRegenerated  int           `json:"script_regenerated"`
	ScriptRegenLeft    int           `json:"script_regen_left"`
	Images             []ImageRecord `json:"images"`
	ImageErrors        []string      `json:"image_errors,omitempty"`
	VideoURL           string        `json:"video_url,omitempty"`
	Generating         bool          `json:"generating"`
	RegeneratingImages []int         `json:"regenerating_images"`
	Status             string        `json:"status,omitempty"`
}
