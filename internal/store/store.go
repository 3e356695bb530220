// Package store is the relational record store for documents, templates and
// audit entries.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/alinme/docsign/internal/model"
)

// Store wraps the database handle with the query-by-field and update-by-id
// operations the orchestrator needs.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema. Tests pass an
// sqlite handle here.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&model.Document{}, &model.Template{}, &model.AuditEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for collaborators sharing the connection.
func (s *Store) DB() *gorm.DB { return s.db }

// CreateDocument inserts a new document record.
func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument loads a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return &doc, nil
}

// UpdateDocument persists the full mutable state of a document record.
func (s *Store) UpdateDocument(ctx context.Context, doc *model.Document) error {
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("failed to update document %s: %w", doc.ID, err)
	}
	return nil
}

// ListDocumentsByOwner returns the owner's documents, newest first.
func (s *Store) ListDocumentsByOwner(ctx context.Context, ownerEmail string) ([]model.Document, error) {
	var docs []model.Document
	err := s.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&model.Document{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// CreateTemplate inserts a new template record.
func (s *Store) CreateTemplate(ctx context.Context, tpl *model.Template) error {
	if err := s.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplate loads a template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	var tpl model.Template
	if err := s.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", id, err)
	}
	return &tpl, nil
}

// ListTemplatesByOwner returns the owner's templates, newest first.
func (s *Store) ListTemplatesByOwner(ctx context.Context, ownerEmail string) ([]model.Template, error) {
	var tpls []model.Template
	err := s.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("created_at DESC").
		Find(&tpls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return tpls, nil
}

// DeleteTemplate removes a template record.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&model.Template{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	return nil
}
