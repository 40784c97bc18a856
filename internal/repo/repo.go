// Package repo holds the GORM repositories, one per entity. Each repository
// can be rebound to a transaction with WithTx.
package repo

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds a FOR UPDATE row lock. SQLite serializes writers at the
// database level and rejects the clause, so it is skipped there.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
