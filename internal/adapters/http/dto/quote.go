package dto

import (
	"time"

	"github.com/jsamuelsen/inspira/internal/domain"
)

// QuoteResponse is the HTTP representation of a quote.
// Image bytes are served separately from /quotes/current/image.
type QuoteResponse struct {
	ID                    string    `json:"id"`
	Text                  string    `json:"text"`
	Creator               string    `json:"creator"`
	DescriptionOfHowFound string    `json:"description_of_how_found"`
	Interpretation        string    `json:"interpretation"`
	HasImage              bool      `json:"has_image"`
	DateCreated           time.Time `json:"date_created"`
}

// QuoteListResponse is the ordered list with the displayed position.
// DisplayedPosition is null when nothing is displayed.
type QuoteListResponse struct {
	Items             []QuoteResponse `json:"items"`
	DisplayedPosition *int            `json:"displayed_position"`
}

// DisplayedQuoteResponse is the detail view of the displayed quote.
type DisplayedQuoteResponse struct {
	Quote    QuoteResponse     `json:"quote"`
	Position int               `json:"position"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

// MaxFieldLength bounds a single field value, in bytes.
const MaxFieldLength = 64 << 10

// UpdateFieldRequest sets one text field of the displayed quote.
// Value may be empty; clearing a field is a valid edit.
type UpdateFieldRequest struct {
	Field string `json:"field" validate:"required,quotefield"`
	Value string `json:"value" validate:"max=65536"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		ID:                    q.ID,
		Text:                  q.Text,
		Creator:               q.Creator,
		DescriptionOfHowFound: q.DescriptionOfHowFound,
		Interpretation:        q.Interpretation,
		HasImage:              q.HasImage(),
		DateCreated:           q.DateCreated.UTC(),
	}
}

// NewQuoteListResponse converts the projection. A negative position means none.
func NewQuoteListResponse(quotes []domain.Quote, displayed int) QuoteListResponse {
	items := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		items[i] = NewQuoteResponse(&quotes[i])
	}

	resp := QuoteListResponse{Items: items}
	if displayed >= 0 {
		resp.DisplayedPosition = &displayed
	}

	return resp
}

// NewDisplayedQuoteResponse converts the displayed quote and attaches the
// save warning while its text is blank.
func NewDisplayedQuoteResponse(q *domain.Quote, position int) DisplayedQuoteResponse {
	resp := DisplayedQuoteResponse{
		Quote:    NewQuoteResponse(q),
		Position: position,
	}

	if err := domain.ValidateForSave(q); err != nil {
		resp.Warnings = map[string]string{string(domain.FieldText): domain.MissingTextMessage}
	}

	return resp
}
