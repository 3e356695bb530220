package pdf

import (
	"bytes"
	"fmt"
)

// Validator performs cheap structural checks on uploaded PDF bytes before
// they are accepted into storage.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateResult reports the outcome of a validation pass.
type ValidateResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Validate checks size bounds, the PDF header magic, and that the file
// parses. A failed check yields an invalid result, not an error: the caller
// distinguishes "bad upload" from "we broke".
func (v *Validator) Validate(src []byte) *ValidateResult {
	if err := v.validateBytes(src); err != nil {
		return &ValidateResult{Valid: false, Message: err.Error()}
	}
	return &ValidateResult{Valid: true}
}

func (v *Validator) validateBytes(src []byte) error {
	if len(src) == 0 {
		return fmt.Errorf("file is empty")
	}
	if v.maxFileSize > 0 && int64(len(src)) > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", len(src), v.maxFileSize)
	}
	if !bytes.HasPrefix(src, []byte("%PDF-")) {
		return fmt.Errorf("missing PDF header")
	}

	info, err := NewInspector(v.maxFileSize).Inspect(src)
	if err != nil {
		return fmt.Errorf("unparseable PDF: %w", err)
	}
	if info.PageCount == 0 {
		return fmt.Errorf("PDF has no pages")
	}
	return nil
}
