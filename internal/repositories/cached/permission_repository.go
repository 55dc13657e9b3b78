package cached

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/pkg/cache"
)

// Observer is notified about cache lookups
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Publisher announces grant changes to other instances sharing the database
type Publisher interface {
	PublishGrantChange(ctx context.Context, memberID string, skillID string) error
}

// PermissionRepository caches GetCapability results of another repository.
// Writes go through to the wrapped repository and invalidate the cached grant
// once the surrounding transaction, if any, has committed.
type PermissionRepository struct {
	next     repositories.PermissionRepository
	cache    cache.Cache
	ttl      time.Duration
	observer Observer // optional
	pub      Publisher // optional

	// mu orders cache fills against invalidations. epoch counts invalidations;
	// a lookup only fills the cache if no invalidation happened while it loaded.
	mu    sync.Mutex
	epoch uint64
}

// NewPermissionRepository wraps next with a grant cache
func NewPermissionRepository(next repositories.PermissionRepository, c cache.Cache, ttl time.Duration, observer Observer) *PermissionRepository {
	return &PermissionRepository{
		next:     next,
		cache:    c,
		ttl:      ttl,
		observer: observer,
	}
}

// SetPublisher sets the publisher notified after every write
func (r *PermissionRepository) SetPublisher(pub Publisher) {
	r.pub = pub
}

func grantKey(memberID, skillID string) string {
	return fmt.Sprintf("grant:%s:%s", memberID, skillID)
}

// GetCapability returns the cached grant or loads it from the wrapped repository
func (r *PermissionRepository) GetCapability(ctx context.Context, memberID string, skillID string) (entities.Capability, error) {
	key := grantKey(memberID, skillID)
	if cached, ok := r.cache.Get(ctx, key); ok {
		if capability, ok := cached.(entities.Capability); ok {
			r.hit()
			return capability, nil
		}
	}
	r.miss()

	r.mu.Lock()
	epoch := r.epoch
	r.mu.Unlock()

	capability, err := r.next.GetCapability(ctx, memberID, skillID)
	if err != nil {
		return entities.CapabilityNone, err
	}

	// Reads inside a transaction may see uncommitted grants
	if repositories.InTransaction(ctx) {
		return capability, nil
	}

	r.mu.Lock()
	if r.epoch == epoch {
		// A failed cache write only costs a later lookup
		_ = r.cache.Set(ctx, key, capability, r.ttl)
	}
	r.mu.Unlock()

	return capability, nil
}

// SetCapability writes through and drops the cached grant
func (r *PermissionRepository) SetCapability(ctx context.Context, perm *entities.Permission) error {
	err := r.next.SetCapability(ctx, perm)
	r.changed(ctx, perm.MemberID, perm.SkillID)
	return err
}

// Delete removes the grant and drops the cached value
func (r *PermissionRepository) Delete(ctx context.Context, memberID string, skillID string) error {
	err := r.next.Delete(ctx, memberID, skillID)
	r.changed(ctx, memberID, skillID)
	return err
}

// ListBySkill is not cached
func (r *PermissionRepository) ListBySkill(ctx context.Context, skillID string) ([]*entities.Permission, error) {
	return r.next.ListBySkill(ctx, skillID)
}

// ListByMember is not cached
func (r *PermissionRepository) ListByMember(ctx context.Context, memberID string) ([]*entities.Permission, error) {
	return r.next.ListByMember(ctx, memberID)
}

// Invalidate drops one cached grant
func (r *PermissionRepository) Invalidate(ctx context.Context, memberID string, skillID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	return r.cache.Delete(ctx, grantKey(memberID, skillID))
}

// InvalidateAll drops every cached grant
func (r *PermissionRepository) InvalidateAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	return r.cache.Clear(ctx)
}

func (r *PermissionRepository) changed(ctx context.Context, memberID string, skillID string) {
	repositories.AfterCommit(ctx, func() {
		_ = r.Invalidate(ctx, memberID, skillID)
		if r.pub == nil {
			return
		}
		// Other instances fall back to the TTL if the notification is lost
		if err := r.pub.PublishGrantChange(ctx, memberID, skillID); err != nil {
			log.Printf("failed to publish grant change for %s on %s: %v", memberID, skillID, err)
		}
	})
}

func (r *PermissionRepository) hit() {
	if r.observer != nil {
		r.observer.RecordCacheHit()
	}
}

func (r *PermissionRepository) miss() {
	if r.observer != nil {
		r.observer.RecordCacheMiss()
	}
}
