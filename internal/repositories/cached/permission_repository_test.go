package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/pkg/cache/memorycache"
)

// countingRepository is an in-memory PermissionRepository that counts lookups
type countingRepository struct {
	grants  map[string]entities.Capability
	lookups int
	err     error
}

func newCountingRepository() *countingRepository {
	return &countingRepository{grants: map[string]entities.Capability{}}
}

func (m *countingRepository) GetCapability(ctx context.Context, memberID string, skillID string) (entities.Capability, error) {
	m.lookups++
	if m.err != nil {
		return entities.CapabilityNone, m.err
	}
	return m.grants[memberID+"/"+skillID], nil
}

func (m *countingRepository) SetCapability(ctx context.Context, perm *entities.Permission) error {
	if perm.Capability == entities.CapabilityNone {
		delete(m.grants, perm.MemberID+"/"+perm.SkillID)
		return nil
	}
	m.grants[perm.MemberID+"/"+perm.SkillID] = perm.Capability
	return nil
}

func (m *countingRepository) Delete(ctx context.Context, memberID string, skillID string) error {
	delete(m.grants, memberID+"/"+skillID)
	return nil
}

func (m *countingRepository) ListBySkill(ctx context.Context, skillID string) ([]*entities.Permission, error) {
	return nil, nil
}

func (m *countingRepository) ListByMember(ctx context.Context, memberID string) ([]*entities.Permission, error) {
	return nil, nil
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) RecordCacheHit()  { o.hits++ }
func (o *countingObserver) RecordCacheMiss() { o.misses++ }

func newTestRepository(t *testing.T) (*PermissionRepository, *countingRepository, *countingObserver) {
	t.Helper()
	c, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	next := newCountingRepository()
	observer := &countingObserver{}
	return NewPermissionRepository(next, c, time.Minute, observer), next, observer
}

func TestPermissionRepository_CachesLookups(t *testing.T) {
	repo, next, observer := newTestRepository(t)
	ctx := context.Background()
	next.grants["alice/deploy"] = entities.CapabilityEdit

	for i := 0; i < 3; i++ {
		got, err := repo.GetCapability(ctx, "alice", "deploy")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != entities.CapabilityEdit {
			t.Errorf("expected Edit, got %v", got)
		}
	}

	if next.lookups != 1 {
		t.Errorf("expected 1 lookup on the wrapped repository, got %d", next.lookups)
	}
	if observer.hits != 2 || observer.misses != 1 {
		t.Errorf("expected 2 hits and 1 miss, got %d hits and %d misses", observer.hits, observer.misses)
	}
}

func TestPermissionRepository_CachesMissingGrant(t *testing.T) {
	repo, next, _ := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := repo.GetCapability(ctx, "bob", "deploy")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != entities.CapabilityNone {
			t.Errorf("expected None, got %v", got)
		}
	}
	if next.lookups != 1 {
		t.Errorf("expected 1 lookup, got %d", next.lookups)
	}
}

func TestPermissionRepository_WriteInvalidates(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.GetCapability(ctx, "alice", "deploy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.SetCapability(ctx, &entities.Permission{MemberID: "alice", SkillID: "deploy", Capability: entities.CapabilityAdmin}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.GetCapability(ctx, "alice", "deploy")
	if got != entities.CapabilityAdmin {
		t.Errorf("expected Admin after write, got %v", got)
	}

	if err := repo.Delete(ctx, "alice", "deploy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = repo.GetCapability(ctx, "alice", "deploy")
	if got != entities.CapabilityNone {
		t.Errorf("expected None after delete, got %v", got)
	}
}

func TestPermissionRepository_ErrorsAreNotCached(t *testing.T) {
	repo, next, _ := newTestRepository(t)
	ctx := context.Background()
	next.err = errors.New("connection refused")

	if _, err := repo.GetCapability(ctx, "alice", "deploy"); err == nil {
		t.Fatal("expected error from wrapped repository")
	}

	next.err = nil
	next.grants["alice/deploy"] = entities.CapabilityUse
	got, err := repo.GetCapability(ctx, "alice", "deploy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != entities.CapabilityUse {
		t.Errorf("expected Use, got %v", got)
	}
}

type recordingPublisher struct {
	changes []string
	err     error
}

func (p *recordingPublisher) PublishGrantChange(ctx context.Context, memberID string, skillID string) error {
	p.changes = append(p.changes, memberID+"/"+skillID)
	return p.err
}

func TestPermissionRepository_PublishesWrites(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	pub := &recordingPublisher{}
	repo.SetPublisher(pub)
	ctx := context.Background()

	if err := repo.SetCapability(ctx, &entities.Permission{MemberID: "alice", SkillID: "deploy", Capability: entities.CapabilityUse}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, "bob", "deploy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetCapability(ctx, "carol", "deploy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"alice/deploy", "bob/deploy"}
	if len(pub.changes) != len(want) {
		t.Fatalf("published %v, want %v", pub.changes, want)
	}
	for i := range want {
		if pub.changes[i] != want[i] {
			t.Errorf("change[%d] = %s, want %s", i, pub.changes[i], want[i])
		}
	}

	t.Run("publish の失敗は書き込みを失敗させない", func(t *testing.T) {
		pub.err = errors.New("notify failed")
		err := repo.SetCapability(ctx, &entities.Permission{MemberID: "alice", SkillID: "deploy", Capability: entities.CapabilityEdit})
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}

func TestPermissionRepository_InvalidateAll(t *testing.T) {
	repo, next, _ := newTestRepository(t)
	ctx := context.Background()

	repo.GetCapability(ctx, "alice", "deploy")
	repo.GetCapability(ctx, "bob", "deploy")
	if err := repo.InvalidateAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.GetCapability(ctx, "alice", "deploy")
	repo.GetCapability(ctx, "bob", "deploy")

	if next.lookups != 4 {
		t.Errorf("expected 4 lookups, got %d", next.lookups)
	}
}

// pausingRepository stops its first lookup after reading the grant until released
type pausingRepository struct {
	*countingRepository
	loaded  chan struct{}
	release chan struct{}
	paused  bool
}

func (m *pausingRepository) GetCapability(ctx context.Context, memberID string, skillID string) (entities.Capability, error) {
	capability, err := m.countingRepository.GetCapability(ctx, memberID, skillID)
	if !m.paused {
		m.paused = true
		close(m.loaded)
		<-m.release
	}
	return capability, err
}

func TestPermissionRepository_RevokeDuringLookup(t *testing.T) {
	c, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	next := &pausingRepository{
		countingRepository: newCountingRepository(),
		loaded:             make(chan struct{}),
		release:            make(chan struct{}),
	}
	next.grants["alice/deploy"] = entities.CapabilityAdmin
	repo := NewPermissionRepository(next, c, time.Minute, nil)
	ctx := context.Background()

	// 古い Admin を読んだ lookup が止まっている間に revoke する
	stale := make(chan entities.Capability)
	go func() {
		capability, _ := repo.GetCapability(ctx, "alice", "deploy")
		stale <- capability
	}()
	<-next.loaded

	if err := repo.SetCapability(ctx, &entities.Permission{MemberID: "alice", SkillID: "deploy", Capability: entities.CapabilityNone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(next.release)

	if got := <-stale; got != entities.CapabilityAdmin {
		t.Fatalf("expected the in-flight lookup to return Admin, got %v", got)
	}

	got, err := repo.GetCapability(ctx, "alice", "deploy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != entities.CapabilityNone {
		t.Errorf("revoked grant still cached: got %v, want None", got)
	}
}

func TestPermissionRepository_InvalidatesAfterCommit(t *testing.T) {
	repo, next, _ := newTestRepository(t)
	pub := &recordingPublisher{}
	repo.SetPublisher(pub)
	ctx := context.Background()

	next.grants["alice/deploy"] = entities.CapabilityUse
	repo.GetCapability(ctx, "alice", "deploy")

	txCtx, commit := repositories.WithAfterCommit(ctx)
	if err := repo.SetCapability(txCtx, &entities.Permission{MemberID: "alice", SkillID: "deploy", Capability: entities.CapabilityEdit}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// コミット前は他のリーダーにコミット済みの値を返し、publish もしない
	if got, _ := repo.GetCapability(ctx, "alice", "deploy"); got != entities.CapabilityUse {
		t.Errorf("before commit: got %v, want Use", got)
	}
	if len(pub.changes) != 0 {
		t.Errorf("expected no publish before commit, got %v", pub.changes)
	}

	// トランザクション内の lookup はキャッシュに入らない
	next.grants["bob/deploy"] = entities.CapabilityAdmin
	repo.GetCapability(txCtx, "bob", "deploy")
	lookups := next.lookups
	repo.GetCapability(ctx, "bob", "deploy")
	if next.lookups != lookups+1 {
		t.Error("expected a lookup made inside a transaction not to be cached")
	}

	commit()

	if got, _ := repo.GetCapability(ctx, "alice", "deploy"); got != entities.CapabilityEdit {
		t.Errorf("after commit: got %v, want Edit", got)
	}
	if len(pub.changes) != 1 || pub.changes[0] != "alice/deploy" {
		t.Errorf("expected one publish after commit, got %v", pub.changes)
	}
}
