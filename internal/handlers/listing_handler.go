package handlers

import (
	"net/http"

	"bike-market/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ListingHandler struct {
	auth     *Authenticator
	listings *services.ListingService
}

func NewListingHandler(auth *Authenticator, listings *services.ListingService) *ListingHandler {
	return &ListingHandler{auth: auth, listings: listings}
}

func (h *ListingHandler) CreateListing(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	var req services.CreateListingInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	bike, err := h.listings.Create(e.Request.Context(), id, req)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusCreated, bike)
}

// AvailableByCategory - Public list of unsold bikes in a category
func (h *ListingHandler) AvailableByCategory(e *core.RequestEvent) error {
	category := e.Request.URL.Query().Get("category")
	if category == "" {
		return apis.NewBadRequestError("category is required", nil)
	}

	bikes, err := h.listings.AvailableByCategory(e.Request.Context(), category)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, bikes)
}

func (h *ListingHandler) Advertised(e *core.RequestEvent) error {
	bikes, err := h.listings.Advertised(e.Request.Context())
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, bikes)
}

func (h *ListingHandler) Advertise(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	bike, err := h.listings.Advertise(e.Request.Context(), id, e.Request.PathValue("id"))
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, bike)
}

func (h *ListingHandler) MyListings(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	email := e.Request.URL.Query().Get("email")
	if email == "" {
		email = id.Email
	}

	bikes, err := h.listings.ListBySeller(e.Request.Context(), id, email)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, bikes)
}

func (h *ListingHandler) DeleteListing(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	if err := h.listings.Delete(e.Request.Context(), id, e.Request.PathValue("id")); err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"deletedCount": 1})
}
