// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// dialect holds the per-driver SQL that differs between backends.
type dialect struct {
	// driverName is the name registered with database/sql.
	driverName string

	// createTable returns an idempotent create-if-absent statement.
	createTable func(table string) string

	// insert returns a single-row insert statement with driver placeholders.
	insert func(table string) string
}

var dialects = map[types.Driver]dialect{
	types.DriverSQLServer: {
		driverName: "sqlserver",
		createTable: func(table string) string {
			return fmt.Sprintf(`IF NOT EXISTS (SELECT * FROM sysobjects WHERE name='%[1]s' AND xtype='U')
			CREATE TABLE [%[1]s] (
				id INT IDENTITY(1,1) PRIMARY KEY,
				brand_name VARCHAR(255),
				manufacturer VARCHAR(255),
				product_type VARCHAR(100),
				route VARCHAR(100),
				loaded_date DATETIME DEFAULT GETDATE()
			)`, table)
		},
		insert: func(table string) string {
			return fmt.Sprintf(`INSERT INTO [%s] (brand_name, manufacturer, product_type, route)
			 VALUES (@p1, @p2, @p3, @p4)`, table)
		},
	},
	types.DriverPostgres: {
		driverName: "pgx",
		createTable: func(table string) string {
			return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id INTEGER GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				brand_name VARCHAR(255),
				manufacturer VARCHAR(255),
				product_type VARCHAR(100),
				route VARCHAR(100),
				loaded_date TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, table)
		},
		insert: func(table string) string {
			return fmt.Sprintf(`INSERT INTO %s (brand_name, manufacturer, product_type, route)
			 VALUES ($1, $2, $3, $4)`, table)
		},
	},
	types.DriverSQLite: {
		driverName: "sqlite3",
		createTable: func(table string) string {
			return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				brand_name VARCHAR(255),
				manufacturer VARCHAR(255),
				product_type VARCHAR(100),
				route VARCHAR(100),
				loaded_date TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, table)
		},
		insert: func(table string) string {
			return fmt.Sprintf(`INSERT INTO %s (brand_name, manufacturer, product_type, route)
			 VALUES (?, ?, ?, ?)`, table)
		},
	},
}

func lookupDialect(d types.Driver) (dialect, error) {
	if d == "" {
		d = types.DriverSQLServer
	}
	dl, ok := dialects[d]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q (want sqlserver, postgres, or sqlite3)", d)
	}
	return dl, nil
}

// DSN builds the connection string for cfg from its four credentials.
// For sqlite3 only Name is used, as the database file path.
func DSN(cfg types.DatabaseConfig) (string, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	secs := strconv.Itoa(int(timeout / time.Second))

	switch cfg.Driver {
	case types.DriverSQLServer, "":
		host, instance := splitSQLServer(cfg.Server)
		q := url.Values{}
		q.Set("database", cfg.Name)
		q.Set("TrustServerCertificate", "true")
		q.Set("connection timeout", secs)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     host,
			Path:     instance,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case types.DriverPostgres:
		q := url.Values{}
		q.Set("connect_timeout", secs)
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     cfg.Server,
			Path:     "/" + cfg.Name,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case types.DriverSQLite:
		if cfg.Name == "" {
			return "", fmt.Errorf("sqlite3 requires a database file name")
		}
		return cfg.Name + "?_journal_mode=WAL&_foreign_keys=on", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// splitSQLServer accepts the ODBC-style server forms "host", "host,port"
// and "host\instance" and returns a URL host and optional instance path.
func splitSQLServer(server string) (host, instance string) {
	host = server
	if i := strings.Index(host, `\`); i >= 0 {
		host, instance = host[:i], host[i+1:]
	}
	if i := strings.LastIndex(host, ","); i >= 0 {
		host = host[:i] + ":" + host[i+1:]
	}
	return host, instance
}
