package database

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

type txKey struct{}

// TxState is the request-scoped transaction and the side effects waiting on its commit.
type TxState struct {
	tx    *gorm.DB
	mu    sync.Mutex
	hooks []func()
}

// WithTx stores tx in ctx so repositories called with the returned context share it.
func WithTx(ctx context.Context, tx *gorm.DB) (context.Context, *TxState) {
	state := &TxState{tx: tx}
	return context.WithValue(ctx, txKey{}, state), state
}

func stateFrom(ctx context.Context) *TxState {
	state, _ := ctx.Value(txKey{}).(*TxState)
	return state
}

// Conn returns the transaction stored in ctx, or db bound to ctx when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state := stateFrom(ctx); state != nil {
		return state.tx
	}
	return db.WithContext(ctx)
}

// AfterCommit defers fn until the transaction in ctx commits. Without a transaction fn runs now.
// Hooks of a rolled back transaction never run.
func AfterCommit(ctx context.Context, fn func()) {
	state := stateFrom(ctx)
	if state == nil {
		fn()
		return
	}
	state.mu.Lock()
	state.hooks = append(state.hooks, fn)
	state.mu.Unlock()
}

// Commit commits the transaction and then runs the deferred hooks in registration order.
func (s *TxState) Commit() error {
	if err := s.tx.Commit().Error; err != nil {
		s.discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Rollback aborts the transaction and drops the deferred hooks.
func (s *TxState) Rollback() error {
	s.discard()
	if err := s.tx.Rollback().Error; err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (s *TxState) discard() {
	s.mu.Lock()
	s.hooks = nil
	s.mu.Unlock()
}

// Transaction runs fn inside a transaction. When ctx already carries one, fn joins it and
// the outer owner decides the outcome.
func Transaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) (err error) {
	if stateFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	txCtx, state := WithTx(ctx, tx)

	defer func() {
		if r := recover(); r != nil {
			_ = state.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = state.Rollback()
		return err
	}
	return state.Commit()
}
