package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config is the immutable set of connection parameters handed to Open.
type Config struct {
	User        string
	Password    string
	Host        string
	Port        string
	Name        string
	TLS         string // go-sql-driver "tls" value; empty disables TLS
	DialTimeout time.Duration
}

// DSN renders the go-sql-driver data source name.
// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", c.Host, c.Port)
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	// CURRENT_TIMESTAMP is evaluated in the session zone; pin it to UTC
	mc.Params = map[string]string{"charset": "utf8mb4", "time_zone": "'+00:00'"}
	if c.TLS != "" {
		mc.TLSConfig = c.TLS
	}
	if c.DialTimeout > 0 {
		mc.Timeout = c.DialTimeout
	}
	return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
//
// Idle connections are not retained: every repository call checks out a
// physical connection and closes it on release.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(0)
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
