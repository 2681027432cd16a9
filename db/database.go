package db

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs fn inside one storage transaction. Repository calls made
// with the ctx handed to fn join that transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Database interface {
	Transactor
	GetDB() *gorm.DB
	// Conn returns the handle bound to ctx: the open transaction if there
	// is one, the pool otherwise.
	Conn(ctx context.Context) *gorm.DB
}

type GormDatabase struct {
	DB *gorm.DB
}

type txKey struct{}

func (g *GormDatabase) GetDB() *gorm.DB { return g.DB }

func (g *GormDatabase) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return g.DB.WithContext(ctx)
}

func (g *GormDatabase) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
