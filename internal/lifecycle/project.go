package lifecycle

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
)

const projectEntity = "project"

// StartProject: pending -> in_progress, started_at = now.
func StartProject(p model.Project, now time.Time) (model.Project, error) {
	if p.Status != model.ProjectStatusPending {
		return p, domain.IllegalTransition(projectEntity, string(p.Status), "start")
	}
	p.Status = model.ProjectStatusInProgress
	p.StartedAt = &now
	return p, nil
}

// CompleteProject: in_progress -> completed.
func CompleteProject(p model.Project, now time.Time) (model.Project, error) {
	if p.Status != model.ProjectStatusInProgress {
		return p, domain.IllegalTransition(projectEntity, string(p.Status), "complete")
	}
	p.Status = model.ProjectStatusCompleted
	p.CompletedAt = &now
	return p, nil
}

// CancelProject: pending | in_progress -> cancelled.
func CancelProject(p model.Project) (model.Project, error) {
	if p.Status != model.ProjectStatusPending && p.Status != model.ProjectStatusInProgress {
		return p, domain.IllegalTransition(projectEntity, string(p.Status), "cancel")
	}
	p.Status = model.ProjectStatusCancelled
	return p, nil
}

// RecordProgress записывает статус шага. Запись прогресса разрешена всегда,
// в том числе для завершённого проекта; статус проекта здесь не меняется.
func RecordProgress(p model.Project, step, stepStatus string) (model.Project, error) {
	step = strings.TrimSpace(step)
	stepStatus = strings.TrimSpace(stepStatus)
	if step == "" {
		return p, domain.Validation("step name is required")
	}
	if stepStatus == "" {
		return p, domain.Validation("step status is required")
	}

	progress := make(datatypes.JSONMap, len(p.Progress)+1)
	for k, v := range p.Progress {
		progress[k] = v
	}
	progress[step] = stepStatus
	p.Progress = progress
	return p, nil
}

// ProgressComplete — прогресс непустой и каждый шаг имеет статус completed.
func ProgressComplete(p model.Project) bool {
	if len(p.Progress) == 0 {
		return false
	}
	for _, v := range p.Progress {
		s, ok := v.(string)
		if !ok || s != model.StepCompleted {
			return false
		}
	}
	return true
}

// EvaluateCompletion переводит проект в completed, если все шаги выполнены.
// Терминальный проект и пустой прогресс не меняются, поэтому повторный вызов безопасен.
// Второй результат сообщает, был ли переход.
func EvaluateCompletion(p model.Project, now time.Time) (model.Project, bool) {
	if p.Status.Terminal() {
		return p, false
	}
	if !ProgressComplete(p) {
		return p, false
	}
	p.Status = model.ProjectStatusCompleted
	p.CompletedAt = &now
	return p, true
}
