package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the lifecycle state of a post. Posts are never physically removed.
type PostStatus string

const (
	// PostStatusActive posts are listed and searchable.
	PostStatusActive PostStatus = "active"
	// PostStatusHidden posts are pulled from listings by a moderator but stay readable by id.
	PostStatusHidden PostStatus = "hidden"
	// PostStatusDeleted is terminal.
	PostStatusDeleted PostStatus = "deleted"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostStatusActive: {PostStatusHidden, PostStatusDeleted},
}

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusActive, PostStatusHidden, PostStatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a post in status s may move to next.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	for _, allowed := range postTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Post is a thread opener inside a community.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CommunityID   uint       `gorm:"not null;index" json:"community_id"`
	Community     *Community `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID      uint       `gorm:"not null;index" json:"author_id"`
	AuthorUser    *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Title         string     `gorm:"size:300;not null" json:"title"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	TitleFold     string     `gorm:"size:300;not null;default:''" json:"-"`
	ContentFold   string     `gorm:"type:text;not null;default:''" json:"-"`
	Tag           *string    `gorm:"size:40" json:"tag"`
	Status        PostStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	BestCommentID *uint      `json:"best_comment_id"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	VoteTally
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// CommunityName is not persisted; computed at query time
	CommunityName string `gorm:"->;-:migration" json:"community_name"`
	// Author is resolved by the service layer
	Author *User `gorm:"-" json:"author"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// AfterFind settles the derived vote fields for rows read through GORM.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.Settle()
	return nil
}

// PostBookmark is a saved post. Toggled, never updated.
type PostBookmark struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PostBookmark) TableName() string {
	return "post_bookmarks"
}

// Bookmark toggle outcomes.
const (
	BookmarkAdded   = "added"
	BookmarkRemoved = "removed"
)
