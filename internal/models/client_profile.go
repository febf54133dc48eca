package models

// ClientProfile 客户档案模型
type ClientProfile struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	Name            string `json:"name" gorm:"size:100;not null"`
	Code            string `json:"code" gorm:"size:20;uniqueIndex"`
	IsActive        bool   `json:"is_active" gorm:"default:true"`
	DefaultTeamSize *int   `json:"default_team_size,omitempty"`
	Notes           string `json:"notes,omitempty" gorm:"size:500"`

	// Projects belonging to this client, removed with it.
	Projects []Project `json:"projects,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (ClientProfile) TableName() string {
	return "client_profiles"
}

// PrimaryKey returns the storage-assigned identity.
func (c ClientProfile) PrimaryKey() uint {
	return c.ID
}
