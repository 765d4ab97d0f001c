// Package storage persists the rendering runtime's localStorage in sqlite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vellum/internal/config"
	"vellum/internal/storage/migrations"

	_ "modernc.org/sqlite"
)

// ErrNotFound 表示键不存在
var ErrNotFound = errors.New("storage: not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB 封装数据库连接
type DB struct {
	*sql.DB
	path string
}

// Open 打开数据库连接并执行迁移
func Open(path string) (*DB, error) {
	dsn := path
	if path != MemoryPath {
		expandedPath, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("expand path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		path, dsn = expandedPath, expandedPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// 每个连接都是独立的内存库，只保留一个连接
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Path 返回数据库文件路径
func (db *DB) Path() string {
	return db.path
}
