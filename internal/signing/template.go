package signing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alinme/docsign/internal/field"
	"github.com/alinme/docsign/internal/model"
)

// CreateTemplateInput is everything needed to author a reusable template.
type CreateTemplateInput struct {
	OwnerEmail  string
	Name        string
	PDF         []byte
	Coordinates []field.Coordinate
	Signers     []model.Signer
}

// CreateTemplate validates and stores a reusable field/signer layout.
func (s *Service) CreateTemplate(ctx context.Context, in CreateTemplateInput) (*model.Template, error) {
	if res := s.validator.Validate(in.PDF); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Message)
	}
	if _, err := field.NormalizeAll(in.Coordinates); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	tpl := &model.Template{
		ID:              uuid.New().String(),
		OwnerEmail:      in.OwnerEmail,
		Name:            in.Name,
		Signers:         in.Signers,
		SignCoordinates: in.Coordinates,
	}
	tpl.StoragePath = fmt.Sprintf("templates/%s/%s", tpl.ID, safeName(in.Name))

	if err := s.blobs.Put(ctx, tpl.StoragePath, in.PDF, pdfContentType); err != nil {
		return nil, fmt.Errorf("failed to store template bytes: %w", err)
	}
	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// GetTemplate loads one template record.
func (s *Service) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// ListTemplates returns the owner's templates.
func (s *Service) ListTemplates(ctx context.Context, ownerEmail string) ([]model.Template, error) {
	return s.store.ListTemplatesByOwner(ctx, ownerEmail)
}

// DeleteTemplate removes a template's record and bytes. Owner only.
func (s *Service) DeleteTemplate(ctx context.Context, id, actorEmail string) error {
	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if tpl.OwnerEmail != actorEmail {
		return ErrNotOwner
	}
	if err := s.blobs.Delete(ctx, tpl.StoragePath); err != nil {
		return fmt.Errorf("failed to delete template object: %w", err)
	}
	return s.store.DeleteTemplate(ctx, id)
}

// InstantiateTemplate creates a fresh document from a template. Fields and
// signers are copied by value: later template edits never reach documents
// already instantiated from it.
func (s *Service) InstantiateTemplate(ctx context.Context, templateID, ownerEmail, name string) (*model.Document, error) {
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	src, err := s.blobs.Get(ctx, tpl.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load template bytes: %w", err)
	}
	if name == "" {
		name = tpl.Name
	}

	signers := make([]model.Signer, len(tpl.Signers))
	copy(signers, tpl.Signers)
	coordinates := make([]field.Coordinate, len(tpl.SignCoordinates))
	copy(coordinates, tpl.SignCoordinates)

	// Template signer ids are role placeholders; each document gets its own.
	ids := make(map[string]string, len(signers))
	for i := range signers {
		fresh := uuid.New().String()
		if signers[i].ID != "" {
			ids[signers[i].ID] = fresh
		}
		signers[i].ID = fresh
	}
	for i := range coordinates {
		if mapped, ok := ids[coordinates[i].SignerID]; ok {
			coordinates[i].SignerID = mapped
		}
	}

	return s.CreateDocument(ctx, CreateDocumentInput{
		OwnerEmail:  ownerEmail,
		Name:        name,
		PDF:         src,
		Coordinates: coordinates,
		Signers:     signers,
	})
}
