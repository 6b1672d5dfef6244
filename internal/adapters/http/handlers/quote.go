package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/inspira/internal/adapters/http/dto"
	"github.com/jsamuelsen/inspira/internal/app"
	"github.com/jsamuelsen/inspira/internal/domain"
)

// QuoteHandler exposes the session's list/detail operations over HTTP.
type QuoteHandler struct {
	session *app.Session
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(session *app.Session) *QuoteHandler {
	return &QuoteHandler{
		session: session,
	}
}

// List handles GET /api/v1/quotes
// Reloads the list from the store.
//
// @Summary List quotes
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.QuoteListResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	quotes, err := h.session.Refresh(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	_, pos := h.session.Displayed()
	c.JSON(http.StatusOK, dto.NewQuoteListResponse(quotes, pos))
}

// StartNewEntry handles POST /api/v1/quotes/drafts
// Removes any untouched draft, then creates and displays a fresh one.
//
// @Summary Start a new entry
// @Tags quotes
// @Produce json
// @Success 201 {object} dto.DisplayedQuoteResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/quotes/drafts [post]
func (h *QuoteHandler) StartNewEntry(c *gin.Context) {
	if _, err := h.session.StartNewEntry(c.Request.Context()); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondDisplayed(c, http.StatusCreated)
}

// Select handles POST /api/v1/quotes/:position/select
// Positions are zero-based indexes into the last listed order.
//
// @Summary Select a quote
// @Tags quotes
// @Produce json
// @Param position path int true "List position"
// @Success 200 {object} dto.DisplayedQuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{position}/select [post]
func (h *QuoteHandler) Select(c *gin.Context) {
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"position must be an integer",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	if _, err := h.session.SelectExisting(c.Request.Context(), position); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondDisplayed(c, http.StatusOK)
}

// Current handles GET /api/v1/quotes/current
//
// @Summary Get the displayed quote
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.DisplayedQuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/current [get]
func (h *QuoteHandler) Current(c *gin.Context) {
	h.respondDisplayed(c, http.StatusOK)
}

// UpdateField handles PATCH /api/v1/quotes/current
// The response carries a warning while the quote text is blank.
//
// @Summary Edit a field of the displayed quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param request body dto.UpdateFieldRequest true "Field and value"
// @Success 200 {object} dto.DisplayedQuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/quotes/current [patch]
func (h *QuoteHandler) UpdateField(c *gin.Context) {
	var req dto.UpdateFieldRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	field, err := domain.ParseField(req.Field)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	if _, err := h.session.UpdateField(c.Request.Context(), field, req.Value); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondDisplayed(c, http.StatusOK)
}

// PutImage handles PUT /api/v1/quotes/current/image
// The raw request body is the encoded image.
//
// @Summary Attach an image to the displayed quote
// @Tags quotes
// @Accept image/png,image/jpeg,image/gif,image/webp
// @Produce json
// @Success 200 {object} dto.DisplayedQuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 415 {object} dto.ErrorResponse
// @Router /api/v1/quotes/current/image [put]
func (h *QuoteHandler) PutImage(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				dto.ErrorCodeBadRequest,
				"image exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes",
			).WithTraceID(dto.GetTraceID(c)))
			return
		}

		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"reading image body",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"image body is empty; use DELETE to remove the image",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	if contentType := http.DetectContentType(data); !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, dto.NewErrorResponse(
			dto.ErrorCodeUnsupportedMedia,
			"body is "+contentType+", not an image",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	if _, err := h.session.SetImage(c.Request.Context(), data); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondDisplayed(c, http.StatusOK)
}

// GetImage handles GET /api/v1/quotes/current/image
//
// @Summary Download the displayed quote's image
// @Tags quotes
// @Produce image/png,image/jpeg,image/gif,image/webp
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/current/image [get]
func (h *QuoteHandler) GetImage(c *gin.Context) {
	q, _ := h.session.Displayed()
	if q == nil {
		dto.HandleError(c, domain.NewNotFoundError("displayed quote", "current"))
		return
	}

	if !q.HasImage() {
		dto.HandleError(c, domain.NewNotFoundError("image", q.ID))
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(q.ImageData), q.ImageData)
}

// DeleteImage handles DELETE /api/v1/quotes/current/image
//
// @Summary Remove the displayed quote's image
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.DisplayedQuoteResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/quotes/current/image [delete]
func (h *QuoteHandler) DeleteImage(c *gin.Context) {
	if _, err := h.session.SetImage(c.Request.Context(), nil); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondDisplayed(c, http.StatusOK)
}

// DeleteCurrent handles DELETE /api/v1/quotes/current
// Responds with the newly displayed quote, or 204 when nothing is displayed.
//
// @Summary Delete the displayed quote
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.DisplayedQuoteResponse
// @Success 204
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/quotes/current [delete]
func (h *QuoteHandler) DeleteCurrent(c *gin.Context) {
	next, err := h.session.DeleteCurrent(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	if next == nil {
		c.Status(http.StatusNoContent)
		return
	}

	h.respondDisplayed(c, http.StatusOK)
}

// respondDisplayed writes the displayed quote, or 404 when there is none.
func (h *QuoteHandler) respondDisplayed(c *gin.Context, status int) {
	q, pos := h.session.Displayed()
	if q == nil {
		dto.HandleError(c, domain.NewNotFoundError("displayed quote", "current"))
		return
	}

	c.JSON(status, dto.NewDisplayedQuoteResponse(q, pos))
}

// respondBindError writes a 400 for malformed or invalid request bodies.
func respondBindError(c *gin.Context, err error) {
	if errors.Is(err, dto.ErrValidation) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			dto.ValidationErrors(err),
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.ErrorCodeBadRequest,
		"request body must be JSON",
	).WithTraceID(dto.GetTraceID(c)))
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.List)
	quotes.POST("/drafts", h.StartNewEntry)
	quotes.POST("/:position/select", h.Select)
	quotes.GET("/current", h.Current)
	quotes.PATCH("/current", h.UpdateField)
	quotes.DELETE("/current", h.DeleteCurrent)
	quotes.GET("/current/image", h.GetImage)
	quotes.PUT("/current/image", h.PutImage)
	quotes.DELETE("/current/image", h.DeleteImage)
}
