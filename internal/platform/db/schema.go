package db

import _ "embed"

//go:embed schema/sqlite.sql
var sqliteSchema string

// MySQL 側はマイグレーションツールで流す。参照用に同梱。
//
//go:embed schema/mysql.sql
var MySQLSchema string
