package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// StateRepository holds OAuth state nonces between the redirect to the
// provider and the callback. Entries self-expire so abandoned sign-in
// attempts never accumulate.
type StateRepository struct {
	cache *cache.Cache
}

func NewStateRepository() *StateRepository {
	// State nonces are only valid for 10 minutes, purge every 5.
	c := cache.New(10*time.Minute, 5*time.Minute)
	return &StateRepository{
		cache: c,
	}
}

func (r *StateRepository) Save(state string, redirectTo string) {
	r.cache.Set(state, redirectTo, cache.DefaultExpiration)
}

// Consume returns the redirect target bound to the state and removes it.
// A state can only be redeemed once.
func (r *StateRepository) Consume(state string) (string, bool) {
	x, found := r.cache.Get(state)
	if !found {
		return "", false
	}
	r.cache.Delete(state)
	return x.(string), true
}
