// Copyright (c) 2026 Civilex. All rights reserved.

package laws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civilex/portal/internal/platform/apperr"
	requestutil "github.com/civilex/portal/internal/platform/request"
	"github.com/civilex/portal/internal/platform/respond"
	"github.com/civilex/portal/internal/platform/validate"
	"github.com/civilex/portal/pkg/pagination"
	"github.com/civilex/portal/pkg/uuidv7"
)

// Handler implements the catalogue HTTP endpoints.
type Handler struct {
	lawsService *Service
}

// NewHandler constructs a catalogue [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{lawsService: service}
}

// Register attaches the public browse endpoints to the given router.
//
// # Endpoints
//   - GET /leyes        : Paginated listing, optional ?categoria= filter.
//   - GET /leyes/{slug} : Single law by URL slug.
//   - GET /categorias   : Category navigation.
func (handler *Handler) Register(router chi.Router) {
	router.Get("/leyes", handler.list)
	router.Get("/leyes/{slug}", handler.getBySlug)
	router.Get("/categorias", handler.listCategories)
}

// RegisterAdmin attaches the publication endpoints.
//
// Called by the server inside the administrator-guarded group.
func (handler *Handler) RegisterAdmin(router chi.Router) {
	router.Post("/leyes", handler.publish)
}

/*
list returns one page of the catalogue.

GET /leyes?page=&limit=&categoria=

Response:
  - 200: {data, meta}: Page of laws plus pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	categorySlug := request.URL.Query().Get("categoria")

	results, total, err := handler.lawsService.ListLaws(request.Context(), params, categorySlug)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Serialize the empty page as [] rather than null.
	if results == nil {
		results = []*Law{}
	}

	respond.Paginated(writer, results, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
getBySlug returns a single law.

GET /leyes/{slug}

Response:
  - 200: Law
  - 404: Unknown slug
*/
func (handler *Handler) getBySlug(writer http.ResponseWriter, request *http.Request) {
	lawSlug := requestutil.Param(request, "slug")

	law, err := handler.lawsService.GetBySlug(request.Context(), lawSlug)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, law)
}

/*
listCategories returns the category navigation.

GET /categorias

Response:
  - 200: []Category
*/
func (handler *Handler) listCategories(writer http.ResponseWriter, request *http.Request) {
	categories, err := handler.lawsService.ListCategories(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if categories == nil {
		categories = []*Category{}
	}

	respond.OK(writer, categories)
}

type publishRequest struct {
	CategoryID  string     `json:"categoria_id"`
	Title       string     `json:"titulo"`
	Summary     string     `json:"resumen"`
	PublishedAt *time.Time `json:"publicada_en"`
}

/*
publish creates a new catalogue entry.

POST /leyes (administrator only)

Response:
  - 201: Law: Created entry with derived slug
  - 400: Validation failure
  - 409: Duplicate slug
*/
func (handler *Handler) publish(writer http.ResponseWriter, request *http.Request) {
	var input publishRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, 300).
		Required(FieldCategory, input.CategoryID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !uuidv7.IsValid(input.CategoryID) {
		respond.Error(writer, request, apperr.ValidationError("Categoría inválida"))
		return
	}

	publishInput := PublishInput{
		CategoryID: input.CategoryID,
		Title:      input.Title,
		Summary:    input.Summary,
	}
	if input.PublishedAt != nil {
		publishInput.PublishedAt = *input.PublishedAt
	}

	law, err := handler.lawsService.Publish(request.Context(), publishInput)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, law)
}
