package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mailtriage/internal/triage/domain"

	"gorm.io/gorm"
)

// fileCursorStore keeps one cursor file per folder. Writes go to a temp file
// followed by an atomic rename so a crash mid-write never corrupts the
// previous valid cursor.
type fileCursorStore struct {
	dir string
}

// NewFileCursorStore creates a file-backed cursor store rooted at dir.
func NewFileCursorStore(dir string) (CursorStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cursor directory: %w", err)
	}
	return &fileCursorStore{dir: dir}, nil
}

func (s *fileCursorStore) path(folder string) string {
	name := strings.ToLower(strings.ReplaceAll(folder, string(os.PathSeparator), "_"))
	return filepath.Join(s.dir, "cursor_"+name+".txt")
}

func (s *fileCursorStore) Load(folder string) (string, error) {
	data, err := os.ReadFile(s.path(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *fileCursorStore) Save(folder, cursor string) error {
	path := s.path(folder)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(cursor), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileCursorStore) Delete(folder string) error {
	err := os.Remove(s.path(folder))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// dbCursorStore persists cursors in the triage database instead of local
// files, for deployments without a stable filesystem.
type dbCursorStore struct {
	db *gorm.DB
}

// NewDBCursorStore creates a postgres-backed cursor store.
func NewDBCursorStore(db *gorm.DB) CursorStore {
	return &dbCursorStore{db: db}
}

func (s *dbCursorStore) Load(folder string) (string, error) {
	var row domain.SyncCursor
	err := s.db.Where("folder = ?", folder).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return row.Cursor, nil
}

func (s *dbCursorStore) Save(folder, cursor string) error {
	row := domain.SyncCursor{Folder: folder, Cursor: cursor, UpdatedAt: time.Now()}
	return s.db.Save(&row).Error
}

func (s *dbCursorStore) Delete(folder string) error {
	return s.db.Where("folder = ?", folder).Delete(&domain.SyncCursor{}).Error
}

// NewCursorStore selects the cursor backend by name: "file" (default) or
// "postgres".
func NewCursorStore(backend, dir string, db *gorm.DB) (CursorStore, error) {
	switch backend {
	case "", "file":
		return NewFileCursorStore(dir)
	case "postgres", "db":
		if db == nil {
			return nil, fmt.Errorf("postgres cursor backend requires a database connection")
		}
		return NewDBCursorStore(db), nil
	default:
		return nil, fmt.Errorf("unknown cursor backend %q", backend)
	}
}
