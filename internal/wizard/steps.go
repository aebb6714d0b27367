package wizard

import (
	"strings"

	"scriptwizard/internal/model"
)

// stepRequirements 各步骤进入下一步前必须填写的表单字段
var stepRequirements = map[model.Step][]string{
	model.StepCompanyInfo: {model.FieldBrand, model.FieldTopic},
	model.StepVideoType:   {model.FieldVideoType, model.FieldTargetPlatform},
	model.StepVisualStyle: {model.FieldVisualStyle, model.FieldAspectRatio},
}

// unmetLocked 返回当前步骤未满足的条件，调用方持有锁
func (c *Controller) unmetLocked() []string {
	switch c.step {
	case model.StepScriptReview:
		if !c.scriptReadyLocked() {
			return []string{"script"}
		}
		return nil
	case model.StepImageReview:
		if len(c.images) == 0 {
			return []string{"images"}
		}
		return nil
	case model.StepVideoReview:
		return nil
	}
	return c.form.Missing(stepRequirements[c.step]...)
}

func (c *Controller) scriptReadyLocked() bool {
	return !c.scriptFailed && strings.TrimSpace(c.script) != ""
}
