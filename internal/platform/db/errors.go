package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MySQL のエラー番号
const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// IsUniqueViolation は UNIQUE / PRIMARY KEY 制約違反かどうか。
func IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry
	}
	if code, msg, ok := sqliteConstraint(err); ok {
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(msg, "UNIQUE constraint failed")
	}
	return false
}

// IsForeignKeyViolation は参照中の行の削除や存在しない親への参照。
func IsForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlRowIsReferenced || me.Number == mysqlNoReferencedRow
	}
	if code, msg, ok := sqliteConstraint(err); ok {
		// 親行の DELETE は SQLITE_CONSTRAINT_TRIGGER (1811) で返ってくる
		return code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
			strings.Contains(msg, "FOREIGN KEY constraint failed")
	}
	return false
}

// sqliteConstraint は拡張コードに関係なく SQLITE_CONSTRAINT 系のエラーを拾う。
func sqliteConstraint(err error) (code int, msg string, ok bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return 0, "", false
	}
	return se.Code(), se.Error(), true
}
