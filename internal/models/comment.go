package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCommentDepth bounds reply nesting. Top-level comments have depth 0.
const MaxCommentDepth = 8

// Comment is a reply to a post, optionally threaded under another comment.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	Post       *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	ParentID   *uint     `gorm:"index" json:"parent_id"`
	Parent     *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	AuthorUser *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Depth      int       `gorm:"not null;default:0" json:"depth"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	VoteTally
	// Author is resolved by the service layer
	Author *User `gorm:"-" json:"author"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}

// AfterFind settles the derived vote fields for rows read through GORM.
func (c *Comment) AfterFind(_ *gorm.DB) error {
	c.Settle()
	return nil
}
