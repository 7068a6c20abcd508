package models

import "time"

// Community is a topic space users join and post into.
type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null;index" json:"name"`
	NameFold    string    `gorm:"size:120;not null;default:'';index" json:"-"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	// MemberCount is not persisted; computed at query time
	MemberCount int `gorm:"->;-:migration" json:"member_count"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}

// CommunityMembership maps users to communities. The composite key makes the
// membership a set.
type CommunityMembership struct {
	CommunityID uint       `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"-"`
	UserID      uint       `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (CommunityMembership) TableName() string {
	return "community_memberships"
}
