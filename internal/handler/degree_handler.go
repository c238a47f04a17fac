package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/model"
	"github.com/stemsi/degree-backend/internal/response"
	"github.com/stemsi/degree-backend/internal/service"
	"github.com/stemsi/degree-backend/internal/validator"
)

const noResultsMessage = "No degrees matched your search."

// statusClientClosedRequest is recorded when the client went away before a
// response could be produced.
const statusClientClosedRequest = 499

type DegreeHandler struct {
	degreeService service.DegreeService
	log           zerolog.Logger
}

func NewDegreeHandler(degreeService service.DegreeService, log zerolog.Logger) *DegreeHandler {
	return &DegreeHandler{
		degreeService: degreeService,
		log:           log.With().Str("component", "degree_handler").Logger(),
	}
}

type searchRequest struct {
	Query string `form:"query" binding:"required,notblank"`
}

// searchResponse is the data payload of GET /degrees/search.
type searchResponse struct {
	Degrees []model.SearchHit `json:"degrees"`
	Total   int               `json:"total"`
	Empty   bool              `json:"empty"`
	Message string            `json:"message,omitempty"`
}

// Create handles POST /api/v1/degrees
func (h *DegreeHandler) Create(c *gin.Context) {
	var req model.DegreeInput
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	degree, err := h.degreeService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"degree": degree})
}

// Get handles GET /api/v1/degrees/:id
func (h *DegreeHandler) Get(c *gin.Context) {
	degree, err := h.degreeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"degree": degree})
}

// Update handles PUT /api/v1/degrees/:id
func (h *DegreeHandler) Update(c *gin.Context) {
	// The id is checked before the body is decoded.
	if err := service.ValidateID(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}

	var req model.DegreeInput
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	degree, err := h.degreeService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"degree": degree})
}

// Delete handles DELETE /api/v1/degrees/:id
func (h *DegreeHandler) Delete(c *gin.Context) {
	if err := h.degreeService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c, http.StatusNoContent)
}

// Search handles GET /api/v1/degrees/search?query=
func (h *DegreeHandler) Search(c *gin.Context) {
	var req searchRequest
	if fields := validator.BindQuery(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.degreeService.Search(c.Request.Context(), req.Query)
	if err != nil {
		h.fail(c, err)
		return
	}

	data := searchResponse{
		Degrees: result.Hits,
		Total:   result.Total,
		Empty:   result.Empty,
	}
	if result.Empty {
		data.Message = noResultsMessage
	}
	response.Success(c, http.StatusOK, data)
}

// fail maps a service error onto the response envelope.
func (h *DegreeHandler) fail(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		code := response.ErrValidation
		if ve.Field == "id" {
			code = response.ErrInvalidID
		}
		response.FailWithFields(c, http.StatusBadRequest, code, map[string]string{ve.Field: ve.Message})
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrPartialDelete):
		response.Fail(c, http.StatusInternalServerError, response.ErrPartialDelete)
	case errors.Is(err, service.ErrSearchUnavailable):
		response.Fail(c, http.StatusInternalServerError, response.ErrSearchUnavailable)
	case errors.Is(err, service.ErrStoreUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		h.log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
