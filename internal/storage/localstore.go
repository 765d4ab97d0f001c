package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// LocalStorage is one origin's localStorage: string keys to string values,
// isolated from every other namespace in the same database.
type LocalStorage struct {
	db        *DB
	namespace string
}

// LocalStorage returns the store for namespace. A nil DB yields a store whose
// reads find nothing and whose writes fail.
func (db *DB) LocalStorage(namespace string) *LocalStorage {
	return &LocalStorage{db: db, namespace: namespace}
}

// Namespace returns the namespace of the store.
func (s *LocalStorage) Namespace() string {
	return s.namespace
}

// GetItem returns the value stored under key.
func (s *LocalStorage) GetItem(key string) (string, bool) {
	v, err := s.Get(key)
	return v, err == nil
}

// Get returns the value stored under key or ErrNotFound.
func (s *LocalStorage) Get(key string) (string, error) {
	if s.db == nil {
		return "", ErrNotFound
	}
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM local_storage WHERE namespace = ? AND key = ?",
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *LocalStorage) SetItem(key, value string) error {
	if s.db == nil {
		return errors.New("storage: no database")
	}
	_, err := s.db.Exec(
		`INSERT INTO local_storage (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		s.namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *LocalStorage) RemoveItem(key string) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec(
		"DELETE FROM local_storage WHERE namespace = ? AND key = ?",
		s.namespace, key,
	); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Keys lists the keys of the namespace in insertion order.
func (s *LocalStorage) Keys() ([]string, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		"SELECT key FROM local_storage WHERE namespace = ? ORDER BY rowid",
		s.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Len returns the number of keys in the namespace.
func (s *LocalStorage) Len() (int, error) {
	if s.db == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM local_storage WHERE namespace = ?", s.namespace).Scan(&n)
	return n, err
}

// Clear deletes every key of the namespace.
func (s *LocalStorage) Clear() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM local_storage WHERE namespace = ?", s.namespace); err != nil {
		return fmt.Errorf("clear %q: %w", s.namespace, err)
	}
	return nil
}

// Namespaces lists every namespace holding at least one key.
func (db *DB) Namespaces() ([]string, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query("SELECT DISTINCT namespace FROM local_storage ORDER BY namespace")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}
