package telegram

import (
	"sync"

	"ap-tutor/api/internal/tutor/types"
	"ap-tutor/api/internal/workflow"
)

// chatSetup — выбранные в чате параметры; живут до рестарта.
type chatSetup struct {
	Grade      string
	Difficulty string
	Disability string
	EngineName string
}

// lastRun keeps the latest completed run so the quick-check button can judge
// it without re-resolving.
type lastRun struct {
	Req types.PipelineRequest
	Res *types.PipelineResult
	QC  *workflow.QuickCheckResult
}

var (
	setups   sync.Map // chatID -> *chatSetup
	chatMode sync.Map // chatID -> string: "", "await_problem"
	runs     sync.Map // chatID -> *lastRun
)

func setupFor(chatID int64) *chatSetup {
	if v, ok := setups.Load(chatID); ok {
		return v.(*chatSetup)
	}
	s := &chatSetup{
		Grade:      types.Grade7th,
		Difficulty: types.DifficultyMedium,
	}
	setups.Store(chatID, s)
	return s
}

func setMode(chatID int64, mode string) { chatMode.Store(chatID, mode) }
func getMode(chatID int64) string {
	if v, ok := chatMode.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}
func clearMode(chatID int64) { chatMode.Delete(chatID) }
