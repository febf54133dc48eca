package models

import "time"

// ScrumItemType 工作项类型
type ScrumItemType string

const (
	ItemTypeStory ScrumItemType = "story"
	ItemTypeTask  ScrumItemType = "task"
	ItemTypeBug   ScrumItemType = "bug"
	ItemTypeEpic  ScrumItemType = "epic"
	ItemTypeSpike ScrumItemType = "spike"
)

// ScrumStatus 工作项状态
type ScrumStatus string

const (
	StatusNew        ScrumStatus = "new"
	StatusInProgress ScrumStatus = "in_progress"
	StatusReview     ScrumStatus = "review"
	StatusDone       ScrumStatus = "done"
	StatusBlocked    ScrumStatus = "blocked"
)

// ScrumPriority 优先级
type ScrumPriority string

const (
	PriorityLow      ScrumPriority = "low"
	PriorityMedium   ScrumPriority = "medium"
	PriorityHigh     ScrumPriority = "high"
	PriorityCritical ScrumPriority = "critical"
)

// ScrumItem represents a daily Scrum work item (story, task, bug, epic or spike).
type ScrumItem struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	ItemID       string        `json:"item_id" gorm:"size:50;not null;uniqueIndex"`
	ProjectID    uint          `json:"project_id" gorm:"not null;index"`
	AssigneeID   *uint         `json:"assignee_id,omitempty" gorm:"index"`
	Title        string        `json:"title" gorm:"size:200;not null"`
	Description  string        `json:"description,omitempty" gorm:"size:2000"`
	ItemType     ScrumItemType `json:"item_type" gorm:"size:20;not null;default:story"`
	Status       ScrumStatus   `json:"status" gorm:"size:20;not null;default:new"`
	Priority     ScrumPriority `json:"priority" gorm:"size:20;not null;default:medium"`
	StoryPoints  int           `json:"story_points" gorm:"default:0"`
	SprintNumber *int          `json:"sprint_number,omitempty"`
	DueDate      *time.Time    `json:"due_date,omitempty"`
	IsActive     bool          `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time     `json:"created_at"`

	Project  *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Assignee *User    `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (ScrumItem) TableName() string {
	return "scrum_items"
}

// PrimaryKey returns the storage-assigned identity.
func (i ScrumItem) PrimaryKey() uint {
	return i.ID
}
