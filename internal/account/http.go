// Copyright (c) 2026 Civilex. All rights reserved.

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civilex/portal/internal/auth"
	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/constants"
	requestutil "github.com/civilex/portal/internal/platform/request"
	"github.com/civilex/portal/internal/platform/respond"
	"github.com/civilex/portal/internal/platform/sec"
	"github.com/civilex/portal/internal/platform/validate"
	"github.com/civilex/portal/pkg/uuidv7"
)

// Handler implements the administrative user management endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs an account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with the user management endpoints.
//
// The administrator guard is applied by the server when mounting; routes here
// assume an already-authorized caller.
//
// # Endpoints
//   - GET    /          : List all users.
//   - POST   /          : Create a user (any role).
//   - GET    /{id}        : Fetch one user.
//   - PUT    /{id}        : Partial update.
//   - DELETE /{id}        : Permanent removal.
//   - POST   /{id}/unlock : Reverse a lockout.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Post("/", handler.create)
	router.Get("/{id}", handler.get)
	router.Put("/{id}", handler.update)
	router.Delete("/{id}", handler.remove)
	router.Post("/{id}/unlock", handler.unlock)

	return router
}

// pathID extracts and validates the {id} parameter.
func pathID(request *http.Request) (string, error) {
	id := requestutil.Param(request, "id")
	if !uuidv7.IsValid(id) {
		return "", apperr.ValidationError("Identificador inválido")
	}
	return id, nil
}

/*
list returns every user record.

GET /usuarios

Response:
  - 200: []User: All accounts, newest first (hashes never serialized)
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.accountService.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, users)
}

/*
get fetches one user record by ID.

GET /usuarios/{id}

Response:
  - 200: User
  - 404: Unknown ID
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id, err := pathID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Get(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Role      string `json:"tipo_usuario"`
}

/*
create enrolls a new account with an administrator-chosen role.

POST /usuarios

Response:
  - 201: {message, user}
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createUserRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(auth.FieldEmail, input.Email).
		Email(auth.FieldEmail, input.Email).
		Required(auth.FieldPassword, input.Password).
		Password(auth.FieldPassword, input.Password).
		Required(auth.FieldFirstName, input.FirstName).
		Required(auth.FieldLastName, input.LastName).
		Required(auth.FieldRole, input.Role)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Create(request.Context(), CreateInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      sec.UserRole(input.Role),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		constants.FieldMessage: "Usuario creado correctamente",
		constants.FieldUser:    user,
	})
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Role      *string `json:"tipo_usuario"`
	Active    *bool   `json:"activo"`
}

/*
update applies partial changes to a user record.

PUT /usuarios/{id}

Response:
  - 200: {message, user}: The updated record
  - 400: Validation failure
  - 404: Unknown ID
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	id, err := pathID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.Email != nil {
		validator.Required(auth.FieldEmail, *input.Email).Email(auth.FieldEmail, *input.Email)
	}
	if input.FirstName != nil {
		validator.Required(auth.FieldFirstName, *input.FirstName)
	}
	if input.LastName != nil {
		validator.Required(auth.FieldLastName, *input.LastName)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updateInput := UpdateInput{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Active:    input.Active,
	}
	if input.Role != nil {
		role := sec.UserRole(*input.Role)
		updateInput.Role = &role
	}

	user, err := handler.accountService.Update(request.Context(), id, updateInput)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldMessage: "Usuario actualizado correctamente",
		constants.FieldUser:    user,
	})
}

/*
remove permanently deletes a user record.

DELETE /usuarios/{id}

Response:
  - 200: {message}
  - 404: Unknown ID
*/
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	id, err := pathID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Delete(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		constants.FieldMessage: "Usuario eliminado correctamente",
	})
}

/*
unlock reverses a progressive-lockout deactivation.

POST /usuarios/{id}/unlock

Description: Sets activo = true and failed_attempts = 0 unconditionally and
returns the updated record so the admin console can refresh its row in place.

Response:
  - 200: {message, user}: Record after the unlock
  - 404: Unknown ID
*/
func (handler *Handler) unlock(writer http.ResponseWriter, request *http.Request) {
	id, err := pathID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Unlock(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldMessage: "Usuario desbloqueado correctamente",
		constants.FieldUser:    user,
	})
}
