// Package signing drives the signing flow: the completion state machine and
// the orchestrator that ties records, storage, burning, audit and mail
// together.
package signing

import (
	"fmt"
	"time"

	"github.com/alinme/docsign/internal/model"
)

// MarkSigned applies the post-burn transition for one signer: the signer
// moves Pending -> Signed with the given timestamp, then the aggregate status
// recomputes over the full signer list. It returns whether the document just
// became Completed. Transitions are one-way; signing twice is a no-op for the
// signer but still recomputes the aggregate.
func MarkSigned(doc *model.Document, signerID string, now time.Time) (bool, error) {
	if doc.Status == model.DocumentVoided {
		return false, fmt.Errorf("document %s is voided", doc.ID)
	}

	s := doc.SignerByID(signerID)
	if s == nil {
		return false, fmt.Errorf("document %s has no signer %s", doc.ID, signerID)
	}

	if s.Status != model.SignerSigned {
		s.Status = model.SignerSigned
		t := now
		s.SignedAt = &t
	}

	if doc.Status == model.DocumentPending && doc.AllSigned() {
		doc.Status = model.DocumentCompleted
		return true, nil
	}
	return false, nil
}
