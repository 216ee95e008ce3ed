package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus beschreibt den Lebenszyklus eines Hintergrund-Jobs.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	// TaskDead: alle Wiederholungsversuche aufgebraucht (Dead-Letter)
	TaskDead TaskStatus = "dead"
)

// ProcessingTask protokolliert einen Hintergrund-Job der Worker-Queue.
type ProcessingTask struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TaskID   string `json:"task_id" gorm:"uniqueIndex;size:64;not null"`
	TaskType string `json:"task_type" gorm:"size:100;not null"` // paper_processing, metrics_refresh, ...

	PaperID *uint `json:"paper_id,omitempty" gorm:"index"`
	UserID  *uint `json:"user_id,omitempty"`

	Status   TaskStatus `json:"status" gorm:"index;default:'pending'"`
	Attempts int        `json:"attempts" gorm:"default:0"`

	Result       datatypes.JSON `json:"result,omitempty" gorm:"type:jsonb"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (ProcessingTask) TableName() string {
	return "processing_tasks"
}
