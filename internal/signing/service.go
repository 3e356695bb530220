package signing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alinme/docsign/internal/audit"
	"github.com/alinme/docsign/internal/blob"
	"github.com/alinme/docsign/internal/burn"
	"github.com/alinme/docsign/internal/field"
	"github.com/alinme/docsign/internal/mail"
	"github.com/alinme/docsign/internal/model"
	"github.com/alinme/docsign/internal/pdf"
	"github.com/alinme/docsign/internal/store"
)

const pdfContentType = "application/pdf"

// ErrNotOwner rejects a mutation attempted by anyone but the initiator.
var ErrNotOwner = errors.New("not the document owner")

// ErrDocumentClosed rejects submissions against completed or voided documents.
var ErrDocumentClosed = errors.New("document no longer accepts signatures")

// ErrInvalidInput rejects malformed uploads or field layouts.
var ErrInvalidInput = errors.New("invalid input")

// LinkBuilder produces the signer-scoped signing URL embedded in invitations.
type LinkBuilder func(documentID, signerID string) (string, error)

// Service orchestrates the signing flow: it loads records and bytes, invokes
// the assembler, applies the completion state machine, persists results and
// emits audit and mail. All collaborators are injected.
type Service struct {
	store     *store.Store
	blobs     blob.Store
	assembler *burn.Assembler
	validator *pdf.Validator
	audit     audit.Sink
	mailer    mail.Mailer
	link      LinkBuilder
	ttl       time.Duration
	now       func() time.Time

	// Submissions are single-writer per document: the lock serializes two
	// signers racing on the same record so neither burn is lost.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures optional collaborators of the Service.
type Options struct {
	Audit      audit.Sink
	Mailer     mail.Mailer
	Link       LinkBuilder
	PresignTTL time.Duration
	MaxPDFSize int64
}

// NewService wires an orchestrator from its collaborators.
func NewService(st *store.Store, blobs blob.Store, opts Options) *Service {
	if opts.Audit == nil {
		opts.Audit = audit.NopSink{}
	}
	if opts.Mailer == nil {
		opts.Mailer = mail.NopMailer{}
	}
	if opts.Link == nil {
		opts.Link = func(documentID, signerID string) (string, error) { return "", nil }
	}
	if opts.PresignTTL == 0 {
		opts.PresignTTL = 24 * time.Hour
	}
	return &Service{
		store:     st,
		blobs:     blobs,
		assembler: burn.NewAssembler(opts.MaxPDFSize),
		validator: pdf.NewValidator(opts.MaxPDFSize),
		audit:     opts.Audit,
		mailer:    opts.Mailer,
		link:      opts.Link,
		ttl:       opts.PresignTTL,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) lockFor(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[documentID] = l
	}
	return l
}

// CreateDocumentInput is everything needed to author a new document.
type CreateDocumentInput struct {
	OwnerEmail  string
	Name        string
	PDF         []byte
	Coordinates []field.Coordinate
	Signers     []model.Signer
}

// CreateDocument validates the upload, stores the PDF, creates the record and
// invites every signer by mail.
func (s *Service) CreateDocument(ctx context.Context, in CreateDocumentInput) (*model.Document, error) {
	if res := s.validator.Validate(in.PDF); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Message)
	}
	if _, err := field.NormalizeAll(in.Coordinates); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doc := &model.Document{
		ID:              uuid.New().String(),
		OwnerEmail:      in.OwnerEmail,
		Name:            in.Name,
		Status:          model.DocumentPending,
		SignCoordinates: in.Coordinates,
	}
	for _, sg := range in.Signers {
		if sg.ID == "" {
			sg.ID = uuid.New().String()
		}
		sg.Status = model.SignerPending
		sg.SignedAt = nil
		doc.Signers = append(doc.Signers, sg)
	}
	doc.StoragePath = fmt.Sprintf("docs/%s/%s", doc.ID, safeName(in.Name))

	if err := s.blobs.Put(ctx, doc.StoragePath, in.PDF, pdfContentType); err != nil {
		return nil, fmt.Errorf("failed to store document bytes: %w", err)
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, doc.ID, model.ActionDocumentCreated, in.OwnerEmail, doc.Name)
	s.inviteSigners(doc)
	return doc, nil
}

// SignRequest is the submission payload from the signing UI.
type SignRequest struct {
	DocumentID           string         `json:"documentId"`
	SignerID             string         `json:"signerId"`
	SignatureImageBase64 string         `json:"signatureImageBase64,omitempty"`
	FieldValues          map[string]any `json:"fieldValues,omitempty"`
}

// SignResult reports the outcome of one submission.
type SignResult struct {
	Document  *model.Document `json:"document"`
	Completed bool            `json:"completed"`
}

// Sign burns one signer's submission into the document. The operation is
// all-or-nothing: bytes and record update only after a fully successful burn,
// so any failure preserves the last good state.
func (s *Service) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	l := s.lockFor(req.DocumentID)
	l.Lock()
	defer l.Unlock()

	doc, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.DocumentPending {
		return nil, fmt.Errorf("%w: status %s", ErrDocumentClosed, doc.Status)
	}
	signer := doc.SignerByID(req.SignerID)
	if signer == nil {
		return nil, fmt.Errorf("document %s has no signer %s", doc.ID, req.SignerID)
	}
	if signer.Status == model.SignerSigned {
		// Retried submission: the signer's marks are already in the bytes.
		// Burning again would draw them twice, so the submission is withheld
		// and the current state reported.
		return &SignResult{Document: doc, Completed: false}, nil
	}

	sub := field.Submission{Values: req.FieldValues}
	if req.SignatureImageBase64 != "" {
		img, err := decodeImagePayload(req.SignatureImageBase64)
		if err != nil {
			return nil, &burn.ImageError{Err: err}
		}
		sub.SignatureImage = img
	}

	fields, err := field.NormalizeAll(doc.SignCoordinates)
	if err != nil {
		return nil, fmt.Errorf("stored coordinates corrupt: %w", err)
	}
	if err := field.ValidateSubmission(field.ResolveForSigner(fields, signer.ID), sub); err != nil {
		return nil, err
	}

	src, err := s.blobs.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, &burn.SourceError{Err: err}
	}

	res, err := s.assembler.Burn(src, fields, burn.Signer{
		ID:          signer.ID,
		Name:        signer.Name,
		Company:     signer.Company,
		CompanyInfo: signer.CompanyInfo,
	}, sub)
	if err != nil {
		return nil, err
	}

	newPath := burn.FinalizedPath(doc.StoragePath)
	if err := s.blobs.Put(ctx, newPath, res.PDF, pdfContentType); err != nil {
		return nil, fmt.Errorf("failed to store burned bytes: %w", err)
	}
	if newPath != doc.StoragePath {
		if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
			slog.Warn("failed to remove pre-signing object",
				"document_id", doc.ID, "path", doc.StoragePath, "error", err)
		}
		doc.StoragePath = newPath
	}

	completed, err := MarkSigned(doc, signer.ID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, doc.ID, model.ActionDocumentSigned, signer.Email,
		fmt.Sprintf("fields: %s", strings.Join(res.DrawnFieldIDs, ",")))
	if completed {
		s.audit.Record(ctx, doc.ID, model.ActionDocumentCompleted, signer.Email, "")
		s.notifyCompleted(doc)
	}

	return &SignResult{Document: doc, Completed: completed}, nil
}

// GetDocument loads one document record.
func (s *Service) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ListDocuments returns the owner's documents.
func (s *Service) ListDocuments(ctx context.Context, ownerEmail string) ([]model.Document, error) {
	return s.store.ListDocumentsByOwner(ctx, ownerEmail)
}

// DownloadURL issues an expiring link for the document's current bytes. A
// missing object degrades to an empty link: listing a document beats
// blocking on an out-of-band deletion.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.SignedURL(ctx, doc.StoragePath, s.ttl)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			slog.Warn("document object missing", "document_id", id, "path", doc.StoragePath)
			return "", nil
		}
		return "", err
	}
	return url, nil
}

// Void marks a pending document as terminally voided. Owner only.
func (s *Service) Void(ctx context.Context, id, actorEmail string) (*model.Document, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerEmail != actorEmail {
		return nil, ErrNotOwner
	}
	if doc.Status != model.DocumentPending {
		return nil, fmt.Errorf("cannot void document in status %s", doc.Status)
	}
	doc.Status = model.DocumentVoided
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, doc.ID, model.ActionDocumentVoided, actorEmail, "")
	return doc, nil
}

// Delete removes a document's record and bytes. Owner only.
func (s *Service) Delete(ctx context.Context, id, actorEmail string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerEmail != actorEmail {
		return ErrNotOwner
	}
	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
		slog.Warn("failed to delete document object", "document_id", id, "error", err)
	}
	return s.store.DeleteDocument(ctx, id)
}

func (s *Service) inviteSigners(doc *model.Document) {
	for _, sg := range doc.Signers {
		url, err := s.link(doc.ID, sg.ID)
		if err != nil {
			slog.Error("failed to build signer link", "document_id", doc.ID, "signer_id", sg.ID, "error", err)
			continue
		}
		body := fmt.Sprintf(
			"<p>%s invited you to sign <b>%s</b>.</p><p><a href=%q>Review and sign</a></p>",
			doc.OwnerEmail, doc.Name, url)
		if err := s.mailer.Send(sg.Email, "Signature requested: "+doc.Name, body); err != nil {
			slog.Error("failed to send invitation", "document_id", doc.ID, "signer_id", sg.ID, "error", err)
		}
	}
}

func (s *Service) notifyCompleted(doc *model.Document) {
	body := fmt.Sprintf("<p><b>%s</b> has been signed by all parties.</p>", doc.Name)
	recipients := []string{doc.OwnerEmail}
	for _, sg := range doc.Signers {
		recipients = append(recipients, sg.Email)
	}
	for _, to := range recipients {
		if err := s.mailer.Send(to, "Completed: "+doc.Name, body); err != nil {
			slog.Error("failed to send completion notice", "document_id", doc.ID, "to", to, "error", err)
		}
	}
}

// decodeImagePayload accepts both a raw base64 string and a data URL.
func decodeImagePayload(payload string) ([]byte, error) {
	if i := strings.Index(payload, ";base64,"); i >= 0 {
		payload = payload[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature payload: %w", err)
	}
	return data, nil
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}
