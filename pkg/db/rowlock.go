package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RowLock adds FOR UPDATE on dialects that support it. SQLite has a single
// writer and rejects the clause, so it is skipped there.
func RowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
