package http

import (
	"net/http"

	"github.com/puremall/storefront/internal/backend"
	"github.com/puremall/storefront/pkg/httputil"
	"github.com/puremall/storefront/pkg/validator"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Login authenticates against the mall backend and opens a storefront
// session. Logging in again as the same user replaces the previous session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess, token, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, loginResponse{
		Token:    token,
		UserID:   sess.UserID,
		Username: sess.Username,
	})
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}

// Register creates a mall account. No session is opened; the shopper logs in
// afterwards.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	err := h.sessions.Register(r.Context(), backend.Registration{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: map[string]string{
		"status": "registered",
	}})
}

// Logout terminates the authenticated session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.sessions.Logout(r.Context(), sess.ID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"status": "logged_out",
	}})
}
