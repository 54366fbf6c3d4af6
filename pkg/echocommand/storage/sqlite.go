//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "echocommand.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when a clip id is unknown.
var ErrNotFound = errors.New("clip not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Clip is the persisted row for one stored audio file.
type Clip struct {
	ID               string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FileName         string   `gorm:"uniqueIndex:idx_clip_file" json:"file_name"`
	Path             string   `json:"path"`
	URL              string   `gorm:"index:idx_clip_url" json:"url"`
	Kind             string   `gorm:"index:idx_clip_kind" json:"kind"`
	Format           string   `json:"format"`
	SizeBytes        int64    `json:"size_bytes"`
	DurationMs       int      `json:"duration_ms"`
	InstructionIndex int      `json:"instruction_index"`
	Sources          []string `gorm:"serializer:json" json:"sources"`
	CreatedAt        time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ECHO_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Clip{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) RegisterClip(clip Clip) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if clip.ID == "" {
		return errors.New("clip id is required")
	}
	if err := c.DB.Create(&clip).Error; err != nil {
		return fmt.Errorf("creating clip: %w", err)
	}
	return nil
}

func (c *DBClient) GetClip(id string) (*Clip, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var clip Clip
	if err := c.DB.Where("id = ?", id).First(&clip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying clip: %w", err)
	}
	return &clip, nil
}

// ListClips returns all clips, oldest first.
func (c *DBClient) ListClips() ([]Clip, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var clips []Clip
	if err := c.DB.Order("created_at asc").Order("id asc").Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("listing clips: %w", err)
	}
	return clips, nil
}

func (c *DBClient) CountClips() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&Clip{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting clips: %w", err)
	}
	return count, nil
}
