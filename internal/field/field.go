// Package field holds the canonical representation of placed fields and of
// the values signers submit for them.
package field

import (
	"fmt"
	"strings"

	"github.com/alinme/docsign/internal/coords"
)

// Type identifies what kind of value a field collects.
type Type string

const (
	TypeSignature Type = "signature"
	TypeDate      Type = "date"
	TypeText      Type = "text"
	TypeCheckbox  Type = "checkbox"
)

// ValidTypes lists every recognised field type.
var ValidTypes = []Type{TypeSignature, TypeDate, TypeText, TypeCheckbox}

// IsValid reports whether t is a recognised field type.
func (t Type) IsValid() bool {
	switch t {
	case TypeSignature, TypeDate, TypeText, TypeCheckbox:
		return true
	}
	return false
}

// Coordinate is the persisted wire shape of a placed field. Both the modern
// fractional members (XPct, YPct, PageNum) and the legacy absolute pixel
// members (X, Y, Page, ViewportWidth) appear so that records written before
// fractional coordinates existed still decode. The shape must stay stable.
type Coordinate struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	SignerID string `json:"signerId,omitempty"`

	// Modern fractional form.
	XPct    *float64 `json:"xPct,omitempty"`
	YPct    *float64 `json:"yPct,omitempty"`
	PageNum *int     `json:"pageNum,omitempty"`

	// Legacy absolute pixel form.
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
	Page          *int     `json:"page,omitempty"`
	ViewportWidth *float64 `json:"viewportWidth,omitempty"`
}

// Field is the normalized in-memory form: always fractional, always paged.
// Everything downstream of Normalize sees only this form.
type Field struct {
	ID        string
	Type      Type
	SignerID  string
	Page      int
	XFraction float64
	YFraction float64
}

// AssignedTo reports whether the field is due from the given signer. A field
// with no signer assigned belongs to every signer (legacy default).
func (f Field) AssignedTo(signerID string) bool {
	return f.SignerID == "" || f.SignerID == signerID
}

// Normalize converts a wire coordinate into the canonical fractional form.
// This is the single legacy/modern branch point: records carrying only
// absolute pixels are re-derived through the legacy viewport assumption.
func Normalize(c Coordinate) (Field, error) {
	if c.ID == "" {
		return Field{}, fmt.Errorf("field has no id")
	}

	t := Type(strings.ToLower(strings.TrimSpace(c.Type)))
	if !t.IsValid() {
		return Field{}, fmt.Errorf("field %s: unknown type %q", c.ID, c.Type)
	}

	f := Field{
		ID:       c.ID,
		Type:     t,
		SignerID: c.SignerID,
		Page:     1,
	}

	switch {
	case c.XPct != nil && c.YPct != nil:
		f.XFraction = clamp01(*c.XPct)
		f.YFraction = clamp01(*c.YPct)
		if c.PageNum != nil && *c.PageNum > 0 {
			f.Page = *c.PageNum
		} else if c.Page != nil && *c.Page > 0 {
			f.Page = *c.Page
		}
	case c.X != nil && c.Y != nil:
		page := 1
		if c.Page != nil && *c.Page > 0 {
			page = *c.Page
		}
		var vw float64
		if c.ViewportWidth != nil {
			vw = *c.ViewportWidth
		}
		p := coords.LegacyPixelsToFractional(*c.X, *c.Y, vw, page)
		f.XFraction = p.XFraction
		f.YFraction = p.YFraction
		f.Page = p.PageNumber
	default:
		return Field{}, fmt.Errorf("field %s: no usable coordinates", c.ID)
	}

	return f, nil
}

// NormalizeAll normalizes a full coordinate list, failing on the first
// malformed entry.
func NormalizeAll(cs []Coordinate) ([]Field, error) {
	fields := make([]Field, 0, len(cs))
	for _, c := range cs {
		f, err := Normalize(c)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// ResolveForSigner filters to the fields due from the given signer: those
// assigned to the signer plus unassigned fields.
func ResolveForSigner(fields []Field, signerID string) []Field {
	var due []Field
	for _, f := range fields {
		if f.AssignedTo(signerID) {
			due = append(due, f)
		}
	}
	return due
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
