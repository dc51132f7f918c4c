package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"toolcrib-backend/internal/platform/config"
)

type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// Conn は main で1つだけ作ってサービスへ注入する。
type Conn struct {
	*sql.DB
	Dialect Dialect
}

// ForUpdate は行ロック句。SQLite は接続1本で書き込みが直列化されるので不要。
func (c *Conn) ForUpdate() string {
	if c.Dialect == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

func Connect(ctx context.Context, c config.DatabaseConfig) (*Conn, error) {
	switch Dialect(strings.ToLower(c.Driver)) {
	case MySQL:
		return connectMySQL(ctx, c)
	case SQLite:
		return OpenSQLite(ctx, c.Path)
	default:
		return nil, fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func connectMySQL(ctx context.Context, c config.DatabaseConfig) (*Conn, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(string(MySQL), dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Conn{DB: db, Dialect: MySQL}, nil
}

// OpenSQLite は開発・テスト用。スキーマも流す。
func OpenSQLite(ctx context.Context, path string) (*Conn, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open(string(SQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 書き込みトランザクションを1本に直列化する
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := applySchema(ctx, db, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Conn{DB: db, Dialect: SQLite}, nil
}

func applySchema(ctx context.Context, db *sql.DB, ddl string) error {
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
