package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"renkioo/server/internal/config"
	"renkioo/server/internal/models"
)

type MySQLStore struct {
	db *gorm.DB
}

func NewMySQLStore(cfg config.MySQLConfig) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(
		&models.StoryRecord{},
		&models.ChoiceAudit{},
		&models.AnalysisRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *MySQLStore) GetDB() *gorm.DB {
	return s.db
}

// Transaction helper
func (s *MySQLStore) WithTx(fn func(*gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// SaveStory inserts or updates one story record.
func (s *MySQLStore) SaveStory(ctx context.Context, rec *models.StoryRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save story %s: %w", rec.ID, err)
	}
	return nil
}

// GetStory loads one story record by id.
func (s *MySQLStore) GetStory(ctx context.Context, id string) (*models.StoryRecord, error) {
	var rec models.StoryRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load story %s: %w", id, err)
	}
	return &rec, nil
}

// ListStories returns the newest records, optionally filtered by child name.
func (s *MySQLStore) ListStories(ctx context.Context, childName string, limit int) ([]models.StoryRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if childName != "" {
		q = q.Where("child_name = ?", childName)
	}
	var out []models.StoryRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return out, nil
}

// SaveChoice appends one applied choice to the audit trail.
func (s *MySQLStore) SaveChoice(ctx context.Context, rec *models.ChoiceAudit) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save choice for story %s: %w", rec.StoryID, err)
	}
	return nil
}

// StoryChoices returns a story's applied choices in play order.
func (s *MySQLStore) StoryChoices(ctx context.Context, storyID string) ([]models.ChoiceAudit, error) {
	var out []models.ChoiceAudit
	err := s.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load choices for story %s: %w", storyID, err)
	}
	return out, nil
}

// SaveAnalysis persists one drawing analysis.
func (s *MySQLStore) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", rec.ID, err)
	}
	return nil
}

// RecentAnalyses returns the newest analyses, optionally filtered by child
// id or name.
func (s *MySQLStore) RecentAnalyses(ctx context.Context, childID, childName string, limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if childID != "" {
		q = q.Where("child_id = ?", childID)
	}
	if childName != "" {
		q = q.Where("child_name = ?", childName)
	}
	var out []models.AnalysisRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return out, nil
}
