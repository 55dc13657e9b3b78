package repositories

import (
	"context"
	"sync"
)

// TxManager runs a function inside one database transaction.
// Repositories called with the ctx passed to fn take part in that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type afterCommitKey struct{}

type afterCommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithAfterCommit returns a context collecting AfterCommit callbacks and the
// function that runs them. TxManager implementations call it after a commit.
func WithAfterCommit(ctx context.Context) (context.Context, func()) {
	hooks := &afterCommitHooks{}
	run := func() {
		hooks.mu.Lock()
		fns := hooks.fns
		hooks.fns = nil
		hooks.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	return context.WithValue(ctx, afterCommitKey{}, hooks), run
}

// AfterCommit defers fn until the transaction carried by ctx commits.
// Outside a transaction fn runs immediately; on rollback it never runs.
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(afterCommitKey{}).(*afterCommitHooks)
	if !ok {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

// InTransaction reports whether ctx carries a transaction started by a TxManager
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(afterCommitKey{}).(*afterCommitHooks)
	return ok
}
