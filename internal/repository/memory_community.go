package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rau/internal/models"
)

type memoryCommunityRepository struct {
	mu          sync.RWMutex
	nextID      uint
	communities map[uint]*models.Community
	members     map[uint]map[uint]struct{}

	users *memoryUserRepository
}

func newMemoryCommunityRepository(users *memoryUserRepository) *memoryCommunityRepository {
	return &memoryCommunityRepository{
		communities: make(map[uint]*models.Community),
		members:     make(map[uint]map[uint]struct{}),
		users:       users,
	}
}

// view must be called with r.mu held.
func (r *memoryCommunityRepository) view(c *models.Community) *models.Community {
	out := *c
	out.MemberCount = len(r.members[c.ID])
	return &out
}

func (r *memoryCommunityRepository) Create(_ context.Context, name string, description *string) (*models.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := &models.Community{
		ID:          r.nextID,
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	r.communities[c.ID] = c
	r.members[c.ID] = make(map[uint]struct{})
	return r.view(c), nil
}

func (r *memoryCommunityRepository) Get(_ context.Context, id uint) (*models.Community, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.communities[id]
	if !ok {
		return nil, nil
	}
	return r.view(c), nil
}

func (r *memoryCommunityRepository) Exists(_ context.Context, id uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.communities[id]
	return ok, nil
}

// name is used by the post store to fill community_name.
func (r *memoryCommunityRepository) name(id uint) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.communities[id]; ok {
		return c.Name
	}
	return ""
}

func (r *memoryCommunityRepository) Join(_ context.Context, communityID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.communities[communityID]; !ok {
		return models.NewNotFoundError("Community", communityID)
	}
	if err := r.users.requireUser(userID); err != nil {
		return err
	}
	r.members[communityID][userID] = struct{}{}
	return nil
}

func (r *memoryCommunityRepository) Leave(_ context.Context, communityID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[communityID], userID)
	return nil
}

func (r *memoryCommunityRepository) Search(_ context.Context, query string, limit int) ([]*models.Community, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.TrimSpace(query)
	out := make([]*models.Community, 0, len(r.communities))
	for _, c := range r.communities {
		if query != "" && !containsFold(c.Name, query) {
			continue
		}
		out = append(out, r.view(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberCount != out[j].MemberCount {
			return out[i].MemberCount > out[j].MemberCount
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out[:clampLimit(limit, len(out))], nil
}
