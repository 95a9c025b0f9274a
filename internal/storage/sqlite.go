package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "fhvae.sqlite3"
const errCatalogNil = "catalog is nil"

// Catalog indexes materialized utterances and saved checkpoints in SQLite.
type Catalog struct {
	DB *gorm.DB
	db *sql.DB
}

// Utterance is one materialized feature artifact.
type Utterance struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SetName    string `gorm:"uniqueIndex:idx_utt_unique,priority:1;index:idx_set" json:"set"`
	UttID      string `gorm:"uniqueIndex:idx_utt_unique,priority:2" json:"utt_id"`
	Seq        int    `json:"seq"`
	WavPath    string `json:"wav_path"`
	FeatPath   string `json:"feat_path"`
	FeatType   string `json:"feat_type"`
	Frames     int    `json:"frames"`
	SampleRate int    `json:"sample_rate"`
	CreatedAt  time.Time
}

// Checkpoint is one checkpoint file found in an experiment directory.
type Checkpoint struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Path      string  `gorm:"uniqueIndex:idx_ckpt_path" json:"path"`
	RunID     string  `gorm:"index:idx_run" json:"run_id"`
	ModelType string  `json:"model_type"`
	Epoch     int     `json:"epoch"`
	BestEpoch int     `json:"best_epoch"`
	BestValLB float64 `json:"best_val_lb"`
	Best      bool    `json:"best"`
	CreatedAt time.Time
}

// NewCatalog opens the catalog at $FHVAE_DB_PATH, or fhvae.sqlite3 if unset.
func NewCatalog() (*Catalog, error) {
	dbPath := os.Getenv("FHVAE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewCatalogWithPath(dbPath)
}

func NewCatalogWithPath(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// Partition workers share a single connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Utterance{}, &Checkpoint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Catalog{DB: db, db: sqlDB}, nil
}

func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ReplaceSet swaps every utterance row of set for utts in one transaction,
// so re-materializing a partition leaves exactly one row per utterance.
func (c *Catalog) ReplaceSet(set string, utts []Utterance) error {
	if c == nil || c.DB == nil {
		return errors.New(errCatalogNil)
	}
	for i := range utts {
		utts[i].SetName = set
		if utts[i].ID == "" {
			utts[i].ID = uuid.NewString()
		}
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_name = ?", set).Delete(&Utterance{}).Error; err != nil {
			return fmt.Errorf("clearing set %s: %w", set, err)
		}
		if len(utts) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(utts, 500).Error; err != nil {
			return fmt.Errorf("batch insert utterances: %w", err)
		}
		return nil
	})
}

// ListUtterances returns the rows of set in manifest order.
func (c *Catalog) ListUtterances(set string) ([]Utterance, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errCatalogNil)
	}
	var rows []Utterance
	if err := c.DB.Where("set_name = ?", set).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying utterances: %w", err)
	}
	return rows, nil
}

// CountUtterances returns the number of rows per set.
func (c *Catalog) CountUtterances() (map[string]int64, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errCatalogNil)
	}
	var rows []struct {
		SetName string
		Count   int64
	}
	if err := c.DB.Model(&Utterance{}).Select("set_name, count(*) as count").Group("set_name").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting utterances: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.SetName] = r.Count
	}
	return counts, nil
}

// RecordCheckpoint inserts ck, or refreshes the existing row for the same path.
func (c *Catalog) RecordCheckpoint(ck *Checkpoint) error {
	if c == nil || c.DB == nil {
		return errors.New(errCatalogNil)
	}
	if ck.ID == "" {
		ck.ID = uuid.NewString()
	}
	err := c.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"run_id", "model_type", "epoch", "best_epoch", "best_val_lb", "best"}),
	}).Create(ck).Error
	if err != nil {
		return fmt.Errorf("recording checkpoint %s: %w", ck.Path, err)
	}
	return nil
}

// ListCheckpoints returns the checkpoints of runID ordered by epoch, or every
// checkpoint when runID is empty.
func (c *Catalog) ListCheckpoints(runID string) ([]Checkpoint, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errCatalogNil)
	}
	q := c.DB.Order("run_id").Order("epoch").Order("best")
	if runID != "" {
		q = q.Where("run_id = ?", runID)
	}
	var rows []Checkpoint
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying checkpoints: %w", err)
	}
	return rows, nil
}
