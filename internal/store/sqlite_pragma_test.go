package store

import (
	"path/filepath"
	"strings"
	"testing"
)

// 连接池里的每个连接都必须带上 DSN 里声明的 pragma，否则并发写入
// 会直接报 SQLITE_BUSY 而不是排队等待。
func TestSQLiteConnectionPragmas(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "andun.db"))
	if err != nil {
		t.Fatalf("NewSQLite err: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode: got %q want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout: got %d want 5000", timeout)
	}
}
