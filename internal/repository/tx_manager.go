package repository

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// txState is what a transaction context carries: the gorm handle and the
// callbacks waiting for the commit.
type txState struct {
	db          *gorm.DB
	afterCommit []func()
}

// TransactionManager runs a unit of work in one database transaction.
// Repositories called with the txCtx join that transaction through GetDB.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	// Nested calls reuse the outer transaction.
	if _, ok := ctx.Value(txContextKey{}).(*txState); ok {
		return fn(ctx)
	}
	state := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.db = tx
		return fn(context.WithValue(ctx, txContextKey{}, state))
	})
	if err != nil {
		return err
	}
	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

// AfterCommit runs fn once the transaction carried by ctx has committed and drops it
// on rollback. Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txContextKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn()
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txContextKey{}).(*txState); ok {
		return state.db.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
