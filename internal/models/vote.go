package models

import "time"

// Vote values. "No vote" is the absence of a row, never a zero value.
const (
	VoteUp   = 1
	VoteDown = -1
)

// VoteStatus is the caller's own vote as rendered to clients.
type VoteStatus string

const (
	VoteStatusUp   VoteStatus = "up"
	VoteStatusDown VoteStatus = "down"
	VoteStatusNone VoteStatus = "none"
)

// ValidVote reports whether value is one of the two storable votes.
func ValidVote(value int) bool {
	return value == VoteUp || value == VoteDown
}

// VoteStatusOf renders a stored vote value (0 when the caller has none).
func VoteStatusOf(value int) VoteStatus {
	switch value {
	case VoteUp:
		return VoteStatusUp
	case VoteDown:
		return VoteStatusDown
	default:
		return VoteStatusNone
	}
}

// VoteTally holds the aggregates derived from vote rows on read.
type VoteTally struct {
	Upvotes    int        `gorm:"->;-:migration" json:"upvotes"`
	Downvotes  int        `gorm:"->;-:migration" json:"downvotes"`
	Score      int        `gorm:"-" json:"score"`
	MyVote     int        `gorm:"->;-:migration" json:"-"`
	VoteStatus VoteStatus `gorm:"-" json:"vote_status"`
}

// Settle fills the fields computed from the counted ones.
func (t *VoteTally) Settle() {
	t.Score = t.Upvotes - t.Downvotes
	t.VoteStatus = VoteStatusOf(t.MyVote)
}

// PostVote is one user's vote on a post.
type PostVote struct {
	PostID  uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Post    *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User    *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Value   int       `gorm:"type:smallint;not null;check:chk_post_votes_value,value IN (-1, 1)" json:"value"`
	VotedAt time.Time `gorm:"not null" json:"voted_at"`
}

// TableName specifies the table name for GORM.
func (PostVote) TableName() string {
	return "post_votes"
}

// CommentVote is one user's vote on a comment.
type CommentVote struct {
	CommentID uint      `gorm:"primaryKey;autoIncrement:false" json:"comment_id"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Value     int       `gorm:"type:smallint;not null;check:chk_comment_votes_value,value IN (-1, 1)" json:"value"`
	VotedAt   time.Time `gorm:"not null" json:"voted_at"`
}

// TableName specifies the table name for GORM.
func (CommentVote) TableName() string {
	return "comment_votes"
}
