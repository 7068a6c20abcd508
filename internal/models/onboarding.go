package models

import "time"

// OnboardingPreference stores what a user declared during onboarding.
// Done is derived on save and cannot be set by callers.
type OnboardingPreference struct {
	UserID              uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	User                *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Done                bool      `gorm:"not null;default:false" json:"done"`
	Careers             []string  `gorm:"type:text;serializer:json" json:"careers"`
	Year                *int      `json:"year"`
	GraduationYear      *int      `json:"graduation_year"`
	FavoriteCommunities []uint    `gorm:"type:text;serializer:json" json:"favorite_communities"`
	UpdatedAt           time.Time `json:"-"`
}

// TableName specifies the table name for GORM.
func (OnboardingPreference) TableName() string {
	return "user_onboarding_preferences"
}

// DefaultOnboarding is the state of a user who never saved preferences.
func DefaultOnboarding(userID uint) *OnboardingPreference {
	return &OnboardingPreference{
		UserID:              userID,
		Careers:             []string{},
		FavoriteCommunities: []uint{},
	}
}

// Normalize replaces nil lists with empty ones and derives Done.
func (o *OnboardingPreference) Normalize() {
	if o.Careers == nil {
		o.Careers = []string{}
	}
	if o.FavoriteCommunities == nil {
		o.FavoriteCommunities = []uint{}
	}
	o.Done = len(o.Careers) > 0 || len(o.FavoriteCommunities) > 0
}
