package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// GrantChannel is the PostgreSQL NOTIFY channel for grant changes
const GrantChannel = "skillperm_grant_changed"

// GrantInvalidator drops cached grants
type GrantInvalidator interface {
	Invalidate(ctx context.Context, memberID string, skillID string) error
	InvalidateAll(ctx context.Context) error
}

type grantChange struct {
	MemberID string `json:"member_id"`
	SkillID  string `json:"skill_id"`
}

// GrantNotifier keeps grant caches of several instances consistent.
// It uses PostgreSQL LISTEN/NOTIFY: writers publish the changed
// (member, skill) pair and every listener drops that cache entry.
type GrantNotifier struct {
	mu       sync.Mutex
	db       *sql.DB
	connStr  string
	target   GrantInvalidator
	listener *pq.Listener
	stopCh   chan struct{}
	stopped  bool
}

// NewGrantNotifier creates a new GrantNotifier.
// connStr is the PostgreSQL connection string used for LISTEN.
func NewGrantNotifier(db *sql.DB, connStr string, target GrantInvalidator) *GrantNotifier {
	return &GrantNotifier{
		db:      db,
		connStr: connStr,
		target:  target,
		stopCh:  make(chan struct{}),
	}
}

// PublishGrantChange sends a notification for one changed grant
func (n *GrantNotifier) PublishGrantChange(ctx context.Context, memberID string, skillID string) error {
	payload, err := json.Marshal(grantChange{MemberID: memberID, SkillID: skillID})
	if err != nil {
		return fmt.Errorf("failed to encode grant change: %w", err)
	}
	if _, err := n.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, GrantChannel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify grant change: %w", err)
	}
	return nil
}

// Start begins listening for grant changes
func (n *GrantNotifier) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("GrantNotifier listener error: %v", err)
		}
	}

	n.listener = pq.NewListener(n.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := n.listener.Listen(GrantChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", GrantChannel, err)
	}

	go n.handleNotifications()
	return nil
}

// Stop stops listening and closes the listener connection
func (n *GrantNotifier) Stop() error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return nil
	}
	n.stopped = true
	close(n.stopCh)
	n.mu.Unlock()

	if n.listener != nil {
		return n.listener.Close()
	}
	return nil
}

func (n *GrantNotifier) handleNotifications() {
	for {
		select {
		case <-n.stopCh:
			return
		case notification, ok := <-n.listener.Notify:
			// Closed by listener.Close; a nil value here is not a reconnect
			if !ok {
				return
			}
			n.apply(notification)
		case <-time.After(90 * time.Second):
			go func() {
				if err := n.listener.Ping(); err != nil {
					log.Printf("GrantNotifier ping error: %v", err)
				}
			}()
		}
	}
}

// apply handles one notification. A nil notification means the connection
// was re-established and changes may have been missed.
func (n *GrantNotifier) apply(notification *pq.Notification) {
	ctx := context.Background()

	if notification == nil {
		if err := n.target.InvalidateAll(ctx); err != nil {
			log.Printf("GrantNotifier failed to clear cache: %v", err)
		}
		return
	}

	var change grantChange
	if err := json.Unmarshal([]byte(notification.Extra), &change); err != nil {
		log.Printf("GrantNotifier ignoring malformed payload %q: %v", notification.Extra, err)
		return
	}
	if err := n.target.Invalidate(ctx, change.MemberID, change.SkillID); err != nil {
		log.Printf("GrantNotifier failed to invalidate %s on %s: %v", change.MemberID, change.SkillID, err)
	}
}
