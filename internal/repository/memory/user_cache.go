package memory

import (
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// UserCache keeps recently resolved principals so consecutive turns
// from the same user skip the database lookup.
type UserCache struct {
	cache *cache.Cache
}

func NewUserCache() *UserCache {
	// Default expiration of 5 minutes, purge sweep every 10 minutes
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &UserCache{
		cache: c,
	}
}

func (r *UserCache) Save(user *entity.User) {
	r.cache.Set(user.Id.String(), user, cache.DefaultExpiration)
}

func (r *UserCache) Get(userID uuid.UUID) (*entity.User, bool) {
	if x, found := r.cache.Get(userID.String()); found {
		return x.(*entity.User), true
	}
	return nil, false
}

func (r *UserCache) Delete(userID uuid.UUID) {
	r.cache.Delete(userID.String())
}
