// Package model defines the persisted records of the signing service.
package model

import (
	"time"

	"github.com/alinme/docsign/internal/field"
)

// SignerStatus is the lifecycle state of one invited signer.
type SignerStatus string

const (
	SignerPending SignerStatus = "Pending"
	SignerSigned  SignerStatus = "Signed"
)

// DocumentStatus is the aggregate lifecycle state of a document.
type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "Pending"
	DocumentCompleted DocumentStatus = "Completed"
	DocumentVoided    DocumentStatus = "Voided"
)

// Signer is a party invited to provide values for their assigned fields.
// Signers are never deleted once their document exists; only the completion
// state machine mutates Status and SignedAt.
type Signer struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Company     string       `json:"company,omitempty"`
	CompanyInfo string       `json:"companyInfo,omitempty"`
	Status      SignerStatus `json:"status"`
	SignedAt    *time.Time   `json:"signedAt,omitempty"`
}

// Document is one signable document: its current PDF object, its placed
// fields, and its invited signers. StoragePath always points at the newest
// burned version; the record identity never changes across burns.
type Document struct {
	ID              string             `gorm:"primaryKey" json:"id"`
	OwnerEmail      string             `gorm:"index;not null" json:"ownerEmail"`
	Name            string             `gorm:"not null" json:"name"`
	StoragePath     string             `gorm:"not null" json:"storagePath"`
	Status          DocumentStatus     `gorm:"index;not null" json:"status"`
	Signers         []Signer           `gorm:"serializer:json" json:"signers"`
	SignCoordinates []field.Coordinate `gorm:"serializer:json" json:"signCoordinates"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// SignerByID returns a pointer into the document's signer list, or nil.
func (d *Document) SignerByID(id string) *Signer {
	for i := range d.Signers {
		if d.Signers[i].ID == id {
			return &d.Signers[i]
		}
	}
	return nil
}

// AllSigned reports whether every invited signer has signed. Signers without
// assigned fields still count: each invitation gates completion.
func (d *Document) AllSigned() bool {
	if len(d.Signers) == 0 {
		return false
	}
	for _, s := range d.Signers {
		if s.Status != SignerSigned {
			return false
		}
	}
	return true
}

// Template is a reusable field/signer layout. Instantiating a document copies
// fields and signers by value; templates have no signing lifecycle.
type Template struct {
	ID              string             `gorm:"primaryKey" json:"id"`
	OwnerEmail      string             `gorm:"index;not null" json:"ownerEmail"`
	Name            string             `gorm:"not null" json:"name"`
	StoragePath     string             `gorm:"not null" json:"storagePath"`
	Signers         []Signer           `gorm:"serializer:json" json:"signers"`
	SignCoordinates []field.Coordinate `gorm:"serializer:json" json:"signCoordinates"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID string    `gorm:"index;not null" json:"documentId"`
	Action     string    `gorm:"not null" json:"action"`
	ActorEmail string    `json:"actorEmail"`
	Details    string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Audit actions of interest.
const (
	ActionDocumentCreated   = "document_created"
	ActionDocumentSigned    = "document_signed"
	ActionDocumentCompleted = "document_completed"
	ActionDocumentVoided    = "document_voided"
)
