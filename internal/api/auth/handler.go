package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nulltasker/nulltasker/internal/metrics"
	"github.com/nulltasker/nulltasker/internal/models"
	"github.com/nulltasker/nulltasker/internal/storage"
)

// Handler handles authentication endpoints.
type Handler struct {
	storage storage.Storage
	tokens  *TokenService
}

// NewHandler creates a new auth handler.
func NewHandler(store storage.Storage, tokens *TokenService) *Handler {
	return &Handler{
		storage: store,
		tokens:  tokens,
	}
}

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	jsonData(w, http.StatusOK, data)
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error codes and messages
const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeValidation    = "VALIDATION_ERROR"
	errCodeUnauthorized  = "UNAUTHORIZED"
	errCodeForbidden     = "FORBIDDEN"
	errCodeConflict      = "CONFLICT"
	errCodeInternalError = "INTERNAL_ERROR"
)

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         *models.User `json:"user"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is returned on successful token refresh. Refresh
// tokens are not rotated; the presented token remains valid.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Register handles new user self-registration. New accounts get the
// basic user role and are enrolled in the default project.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	if req.DisplayName == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidation, "display_name required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, "invalid email address")
		return
	}
	if err := ValidatePasswordOrError(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	ctx := r.Context()
	existing, err := h.storage.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("register error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("register error: hash password: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	user := models.NewUser(req.DisplayName, req.Email, models.RoleUser)
	user.ID = uuid.New().String()
	user.PasswordHash = string(hash)
	user.AddProject(models.DefaultProjectID)

	if err := h.storage.Users().Create(ctx, user); err != nil {
		log.Printf("register error: create user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if err := h.storage.Projects().AddMember(ctx, models.DefaultProjectID, user.ID); err != nil {
		log.Printf("register error: enroll default project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.RegistrationsTotal.Inc()
	log.Printf("register success: user %s", user.Email)
	jsonData(w, http.StatusCreated, user)
}

// Login handles user login. Unknown email and wrong password produce
// identical responses.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "email and password required")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("login error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		log.Printf("login failed: unknown email %s", req.Email)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		log.Printf("login failed: invalid password for %s", req.Email)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(user)
	if err != nil {
		log.Printf("login error: generate access token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	refreshToken, err := h.tokens.GenerateRefreshToken(user, req.RememberMe)
	if err != nil {
		log.Printf("login error: generate refresh token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	now := time.Now()
	user.LastLogin = &now
	user.UpdatedAt = now
	if err := h.storage.Users().Update(ctx, user); err != nil {
		// Login still succeeds; the stamp is best effort.
		log.Printf("login warning: stamp last login: %v", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	log.Printf("login success: user %s", user.Email)

	jsonOK(w, &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.tokens.AccessTTLSeconds(),
		TokenType:    "Bearer",
		User:         user,
	})
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "refresh_token required")
		return
	}

	userID, err := h.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		log.Printf("refresh failed: %v", err)
		jsonError(w, http.StatusForbidden, errCodeForbidden, "invalid or expired refresh token")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByID(ctx, userID)
	if err != nil {
		log.Printf("refresh error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		log.Printf("refresh failed: user %s no longer exists", userID)
		jsonError(w, http.StatusForbidden, errCodeForbidden, "invalid or expired refresh token")
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(user)
	if err != nil {
		log.Printf("refresh error: generate access token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	log.Printf("token refresh success: user %s", user.Email)

	jsonOK(w, &RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   h.tokens.AccessTTLSeconds(),
		TokenType:   "Bearer",
	})
}

// Verify validates the bearer token and returns the current account.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "missing bearer token")
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		log.Printf("verify error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
		return
	}

	jsonOK(w, user)
}

// Logout acknowledges a logout. Tokens are stateless, so the server has
// nothing to revoke; clients discard their copies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log.Printf("logout")
	jsonNoContent(w)
}
