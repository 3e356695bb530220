package field

import (
	"fmt"
	"strings"
)

// Submission carries the values one signer provides for their due fields.
// SignatureImage holds decoded PNG/JPEG bytes shared by every signature-type
// field of the submission; Values maps field id to a text/date string or a
// checkbox boolean.
type Submission struct {
	SignatureImage []byte
	Values         map[string]any
}

// StringValue returns the submitted string for a field id, if any.
func (s Submission) StringValue(fieldID string) (string, bool) {
	v, ok := s.Values[fieldID]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// BoolValue returns the submitted boolean for a field id. Checkbox values
// arrive either as JSON booleans or as the strings "true"/"false".
func (s Submission) BoolValue(fieldID string) bool {
	v, ok := s.Values[fieldID]
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

// ValidationError reports the signature fields a submission left unfilled.
type ValidationError struct {
	MissingFieldIDs []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("submission incomplete: missing signature for fields %s",
		strings.Join(e.MissingFieldIDs, ", "))
}

// ValidateSubmission checks a submission against the signer's due fields.
// Only signature fields are mandatory; text, date and checkbox fields may be
// left empty. Returns a *ValidationError naming every unmet signature field.
func ValidateSubmission(due []Field, sub Submission) error {
	var missing []string
	for _, f := range due {
		if f.Type == TypeSignature && len(sub.SignatureImage) == 0 {
			missing = append(missing, f.ID)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{MissingFieldIDs: missing}
	}
	return nil
}
