package http

import (
	"net/http"

	"github.com/puremall/storefront/internal/domain"
	"github.com/puremall/storefront/pkg/httputil"
	"github.com/puremall/storefront/pkg/validator"
)

// ListAddresses refreshes the address book from the backend and returns it.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := sess.Orders.LoadAddresses(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, sess.Orders.Addresses())
}

type addressRequest struct {
	Name      string `json:"name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Province  string `json:"province" validate:"required"`
	City      string `json:"city" validate:"required"`
	District  string `json:"district" validate:"required"`
	Detail    string `json:"detail" validate:"required"`
	Postcode  string `json:"postcode"`
	IsDefault bool   `json:"isDefault"`
}

// AddAddress creates a shipping address.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req addressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	err := sess.Orders.AddAddress(r.Context(), domain.Address{
		Name:      req.Name,
		Phone:     req.Phone,
		Province:  req.Province,
		City:      req.City,
		District:  req.District,
		Detail:    req.Detail,
		Postcode:  req.Postcode,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusCreated, sess.Orders.Addresses())
}

// SetDefaultAddress marks one address as the default.
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := sess.Orders.SetDefaultAddress(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, sess.Orders.Addresses())
}

// DeleteAddress removes an address from the book.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := sess.Orders.DeleteAddress(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, sess.Orders.Addresses())
}
