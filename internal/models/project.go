package models

import "time"

// Project 项目模型
type Project struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ClientID    uint       `json:"client_id" gorm:"not null;index"`
	Name        string     `json:"name" gorm:"size:150;not null"`
	Description string     `json:"description,omitempty" gorm:"size:1000"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`

	Client *ClientProfile `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	// Work items belonging to this project, removed with it.
	Items []ScrumItem `json:"items,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// PrimaryKey returns the storage-assigned identity.
func (p Project) PrimaryKey() uint {
	return p.ID
}
