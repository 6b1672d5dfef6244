// Package domain contains core business entities and rules.
package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Quote represents one captured quotation.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// ID is the unique identifier, assigned at creation and never changed.
	ID string

	// Text is the quotation itself.
	Text string

	// Creator is who said or wrote the quote.
	Creator string

	// DescriptionOfHowFound records where the quote was encountered.
	DescriptionOfHowFound string

	// Interpretation is the owner's reading of the quote.
	Interpretation string

	// ImageData is an optional encoded image (JPEG, PNG, ...).
	ImageData []byte

	// DateCreated is set at creation and is the sole sort key, newest first.
	DateCreated time.Time
}

// HasImage reports whether an image is attached.
func (q *Quote) HasImage() bool {
	return len(q.ImageData) > 0
}

// Get returns the value of a text field. Unknown fields read as "".
func (q *Quote) Get(f Field) string {
	switch f {
	case FieldText:
		return q.Text
	case FieldCreator:
		return q.Creator
	case FieldDescriptionOfHowFound:
		return q.DescriptionOfHowFound
	case FieldInterpretation:
		return q.Interpretation
	default:
		return ""
	}
}

// Clone returns a deep copy, so callers never share the image buffer.
func (q Quote) Clone() Quote {
	if q.ImageData != nil {
		q.ImageData = bytes.Clone(q.ImageData)
	}

	return q
}

// Field names one editable text input of a quote.
type Field string

// The finite set of editable text fields.
const (
	FieldText                  Field = "text"
	FieldCreator               Field = "creator"
	FieldDescriptionOfHowFound Field = "description_of_how_found"
	FieldInterpretation        Field = "interpretation"
)

// Fields lists every editable text field in display order.
func Fields() []Field {
	return []Field{FieldText, FieldCreator, FieldDescriptionOfHowFound, FieldInterpretation}
}

// ParseField converts an input name into a Field.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields() {
		if f == known {
			return f, nil
		}
	}

	return "", NewValidationErrorWithValue("field", fmt.Sprintf("unknown field %q", name), name)
}

// QuoteUpdate is a partial update. Nil pointers leave the stored value unchanged.
type QuoteUpdate struct {
	Text                  *string
	Creator               *string
	DescriptionOfHowFound *string
	Interpretation        *string

	// ImageData replaces the image when SetImage is true; nil clears it.
	ImageData []byte
	SetImage  bool
}

// FieldUpdate builds an update touching a single text field.
func FieldUpdate(field Field, value string) (QuoteUpdate, error) {
	var u QuoteUpdate

	switch field {
	case FieldText:
		u.Text = &value
	case FieldCreator:
		u.Creator = &value
	case FieldDescriptionOfHowFound:
		u.DescriptionOfHowFound = &value
	case FieldInterpretation:
		u.Interpretation = &value
	default:
		return u, NewValidationErrorWithValue("field", fmt.Sprintf("unknown field %q", field), string(field))
	}

	return u, nil
}

// IsZero reports whether the update changes nothing.
func (u QuoteUpdate) IsZero() bool {
	return u.Text == nil && u.Creator == nil && u.DescriptionOfHowFound == nil &&
		u.Interpretation == nil && !u.SetImage
}

// Apply writes the update onto q.
func (u QuoteUpdate) Apply(q *Quote) {
	if u.Text != nil {
		q.Text = *u.Text
	}
	if u.Creator != nil {
		q.Creator = *u.Creator
	}
	if u.DescriptionOfHowFound != nil {
		q.DescriptionOfHowFound = *u.DescriptionOfHowFound
	}
	if u.Interpretation != nil {
		q.Interpretation = *u.Interpretation
	}
	if u.SetImage {
		if len(u.ImageData) == 0 {
			q.ImageData = nil
		} else {
			q.ImageData = bytes.Clone(u.ImageData)
		}
	}
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// EmptinessRule decides whether an attached image keeps a quote from being a draft.
type EmptinessRule string

const (
	// EmptinessIgnoresImage treats a quote as empty when its four text fields
	// are blank, whatever its image.
	EmptinessIgnoresImage EmptinessRule = "ignore_image"

	// EmptinessImageCounts additionally requires the image to be absent.
	EmptinessImageCounts EmptinessRule = "image_counts"
)

// ParseEmptinessRule converts a configuration value into an EmptinessRule.
// An empty string selects EmptinessIgnoresImage.
func ParseEmptinessRule(s string) (EmptinessRule, error) {
	switch EmptinessRule(s) {
	case "", EmptinessIgnoresImage:
		return EmptinessIgnoresImage, nil
	case EmptinessImageCounts:
		return EmptinessImageCounts, nil
	default:
		return "", NewValidationErrorWithValue("emptiness_rule", "must be ignore_image or image_counts", s)
	}
}

// IsEmpty reports whether q is a draft under the rule.
func (r EmptinessRule) IsEmpty(q *Quote) bool {
	if !IsBlank(q.Text) || !IsBlank(q.Creator) ||
		!IsBlank(q.DescriptionOfHowFound) || !IsBlank(q.Interpretation) {
		return false
	}

	if r == EmptinessImageCounts {
		return !q.HasImage()
	}

	return true
}

// MissingTextMessage is shown while a quote has no text.
const MissingTextMessage = "please enter a quote"

// ValidateForSave reports whether q has the content a finished entry needs.
// It returns a ValidationError on FieldText when the text is blank.
func ValidateForSave(q *Quote) error {
	if IsBlank(q.Text) {
		return NewValidationError(string(FieldText), MissingTextMessage)
	}

	return nil
}
