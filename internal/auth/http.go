// Copyright (c) 2026 Civilex. All rights reserved.

/*
HTTP delivery layer for authentication.

The handler acts as a thin mediation layer between the web and the domain
service:

  - Protocol: RESTful JSON with the portal's historical Spanish wire contract.
  - Security: The signed identity token travels ONLY in an HttpOnly cookie,
    never in a JSON body. A parallel server-side session is established on
    login so either credential can satisfy later requests.
  - Verification: Strict input validation before reaching [Service].
*/

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/constants"
	"github.com/civilex/portal/internal/platform/ctxutil"
	"github.com/civilex/portal/internal/platform/middleware"
	requestutil "github.com/civilex/portal/internal/platform/request"
	"github.com/civilex/portal/internal/platform/respond"
	"github.com/civilex/portal/internal/platform/sec"
	"github.com/civilex/portal/internal/platform/validate"
	"github.com/civilex/portal/internal/session"
)

// # Client Messages
//
// These strings are part of the public contract; the frontend matches on them.

const (
	// msgLoginFailed covers BOTH unknown identifiers and wrong passwords so a
	// caller cannot probe which accounts exist.
	msgLoginFailed = "Usuario o contraseña incorrectos"

	// msgLoginBlocked is returned for deactivated accounts. It intentionally
	// reuses the generic prefix; the suffix is the historical lockout notice
	// users and support staff rely on.
	msgLoginBlocked = "Usuario o contraseña incorrectos, excediste el maximo permitido"

	msgLoginSuccess  = "Login exitoso"
	msgLogoutSuccess = "Sesión cerrada"
	msgResetSent     = "Si el correo está registrado, se ha enviado un enlace de recuperación."
	msgResetDone     = "Contraseña actualizada correctamente"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
	tokens      *sec.TokenService
	sessions    session.Store
	secure      bool
}

// NewHandler constructs a new [Handler] with its dependencies.
//
// secure controls the Secure attribute on issued cookies (false in local
// development over plain HTTP).
func NewHandler(service *Service, tokens *sec.TokenService, sessions session.Store, secure bool) *Handler {
	return &Handler{
		authService: service,
		tokens:      tokens,
		sessions:    sessions,
		secure:      secure,
	}
}

// Register attaches the authentication routes to the given router.
//
// The portal's wire contract is flat (no /auth prefix), so routes register
// directly on the root router instead of a mounted sub-router.
//
// # Endpoints
//   - POST /login           : Credential check with progressive lockout.
//   - POST /logout          : Destroys both identity credentials. Idempotent.
//   - POST /registro        : Public citizen registration.
//   - GET  /me              : Reconciled caller identity.
//   - POST /forgot-password : Starts password recovery.
//   - POST /reset-password  : Completes password recovery.
func (handler *Handler) Register(router chi.Router) {

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Post("/registro", handler.register)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})
}

// # Request Payloads

type loginRequest struct {
	Identifier string `json:"identificador"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

/*
login authenticates a user and establishes the dual identity.

POST /login

Description: Runs the credential check with progressive lockout, then on
success issues the signed identity token cookie AND creates a server-side
session referenced by its own cookie.

Request:
  - Body: loginRequest (Identifier or Email, Password)

Response:
  - 200: {message, user}: Token and session cookies set
  - 400: Missing fields
  - 401: Generic failure message, or the lockout message for blocked accounts
  - 500: Storage faults (access denied, fail closed)
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// The login form historically posts either field name.
	identifier := input.Identifier
	if identifier == "" {
		identifier = input.Email
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, identifier).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Authenticate(request.Context(), identifier, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	switch result.Outcome {
	case OutcomeSuccess:
		handler.establishIdentity(writer, request, result.User)

	case OutcomeBlocked:
		respond.Error(writer, request, apperr.Unauthorized(msgLoginBlocked))

	default:
		// NotFound and WrongPassword are indistinguishable on the wire.
		respond.Error(writer, request, apperr.Unauthorized(msgLoginFailed))
	}
}

// establishIdentity issues the token cookie, mirrors the identity into a new
// server-side session, and writes the success payload.
func (handler *Handler) establishIdentity(writer http.ResponseWriter, request *http.Request, user *User) {
	claims := user.Claims()

	signedToken, err := handler.tokens.GenerateToken(claims, constants.TokenTTL)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	http.SetCookie(writer, TokenCookie(signedToken, handler.secure))

	// Mirror the identity server-side. A session store outage does not fail
	// the login: the token cookie alone is a complete credential.
	sessionID, err := sec.GenerateSecureToken(session.IDLength)
	if err == nil {
		if putErr := handler.sessions.Put(request.Context(), sessionID, session.FromClaims(&claims)); putErr == nil {
			http.SetCookie(writer, middleware.SessionCookie(sessionID, handler.secure))
		} else {
			ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
				"login_session_mirror_failed")
		}
	}

	respond.OK(writer, map[string]any{
		constants.FieldMessage: msgLoginSuccess,
		constants.FieldUser:    user.Profile(),
	})
}

/*
logout destroys both identity credentials.

POST /logout

Description: Deletes the server-side session (if any) and expires both
cookies. Idempotent — logging out while logged out still succeeds.

Response:
  - 200: {message}: Credentials cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
		// Best effort: a session store outage must not block logout.
		_ = handler.sessions.Delete(request.Context(), cookie.Value)
	}

	http.SetCookie(writer, expiredCookie(constants.TokenCookieName, handler.secure))
	http.SetCookie(writer, expiredCookie(constants.SessionCookieName, handler.secure))

	respond.OK(writer, map[string]string{
		constants.FieldMessage: msgLogoutSuccess,
	})
}

/*
me returns the reconciled caller identity.

GET /me

Description: Reads the identity established by the reconciler middleware —
sourced from the token when present, otherwise from the session.

Response:
  - 200: {user}: Identity claims
  - 401: Not authenticated
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldUser: Profile{
			ID:        claims.UserID,
			Email:     claims.Email,
			FirstName: claims.FirstName,
			LastName:  claims.LastName,
			Role:      sec.UserRole(claims.Role),
		},
	})
}

/*
register creates a new citizen account.

POST /registro

Description: Validates input and persists a new active account with the
citizen role. Administrators are created only through the admin surface.

Request:
  - Body: registerRequest (Email, Password, FirstName, LastName)

Response:
  - 201: {message, user}: Created profile
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Password(FieldPassword, input.Password).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, 100).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      sec.RoleCitizen,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		constants.FieldMessage: "Usuario registrado correctamente",
		constants.FieldUser:    user.Profile(),
	})
}

/*
forgotPassword initiates the password recovery flow.

POST /forgot-password

Description: Stores a one-hour recovery token on the user record. The
response is identical whether or not the email exists, to prevent account
enumeration.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: {message}: Generic acknowledgment
  - 400: Invalid email format
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err := handler.authService.RequestPasswordReset(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// TODO: deliver the token by email once the notification service exists.
	respond.OK(writer, map[string]string{
		constants.FieldMessage: msgResetSent,
	})
}

/*
resetPassword completes the password recovery flow.

POST /reset-password

Description: Validates the recovery token and replaces the password.

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 200: {message}: Password updated
  - 400: Weak password or missing token
  - 401: Unknown or expired token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		constants.FieldMessage: msgResetDone,
	})
}

// # Cookies

// TokenCookie builds the HttpOnly cookie carrying the signed identity token.
func TokenCookie(signedToken string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     constants.TokenCookieName,
		Value:    signedToken,
		Path:     "/",
		MaxAge:   int(constants.TokenTTL.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredCookie builds an immediate-expiry replacement for the named cookie.
func expiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
