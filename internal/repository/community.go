package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rau/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// communityRepository implements CommunityRepository
type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) withMemberCount(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Community{}).Select("communities.*, " +
		"(SELECT COUNT(*) FROM community_memberships WHERE community_memberships.community_id = communities.id) AS member_count")
}

func (r *communityRepository) Create(ctx context.Context, name string, description *string) (*models.Community, error) {
	community := &models.Community{Name: strings.TrimSpace(name), Description: description}
	if err := r.db.WithContext(ctx).Create(community).Error; err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}
	return community, nil
}

func (r *communityRepository) Get(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	err := r.withMemberCount(r.db.WithContext(ctx)).Where("communities.id = ?", id).Take(&community).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *communityRepository) Join(ctx context.Context, communityID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Community{}).Where("id = ?", communityID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("Community", communityID)
		}
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		membership := &models.CommunityMembership{
			CommunityID: communityID,
			UserID:      userID,
			CreatedAt:   time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(membership).Error
	})
}

func (r *communityRepository) Leave(ctx context.Context, communityID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMembership{}).Error
}

// nameOrder sorts names by their bytes, as the memory store does. Postgres
// would otherwise apply the database collation.
func (r *communityRepository) nameOrder() string {
	if r.db.Dialector.Name() == "postgres" {
		return `communities.name COLLATE "C" ASC`
	}
	return "communities.name ASC"
}

func (r *communityRepository) Search(ctx context.Context, query string, limit int) ([]*models.Community, error) {
	var communities []*models.Community
	q := r.withMemberCount(r.db.WithContext(ctx))
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where(`communities.name_fold LIKE ? ESCAPE '\'`, containsPattern(query))
	}
	err := q.Order("member_count DESC").
		Order(r.nameOrder()).
		Order("communities.id ASC").
		Limit(limit).
		Find(&communities).Error
	if err != nil {
		return nil, err
	}
	return communities, nil
}
