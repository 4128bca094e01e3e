package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Bg is a Context with a background ctx and no transaction.
func Bg() Context {
	return Context{Ctx: context.Background()}
}

// DB returns the transaction when set, otherwise fallback, scoped to Ctx.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Tx != nil {
		return c.Tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

// InTx reports whether Tx is a real database transaction. gorm.DB values are
// cloned freely, so pointer comparison cannot answer this.
func (c Context) InTx() bool {
	db := c.Tx
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}
