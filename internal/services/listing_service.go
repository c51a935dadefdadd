package services

import (
	"context"
	"fmt"
	"strings"

	"bike-market/internal/status"
	"bike-market/internal/store"
	"bike-market/models"
)

type ListingService struct {
	db    store.Store
	roles *RoleService
}

func NewListingService(db store.Store, roles *RoleService) *ListingService {
	return &ListingService{db: db, roles: roles}
}

type CreateListingInput struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image"`
	Location    string  `json:"location"`
	Price       float64 `json:"price"`
}

func (s *ListingService) Create(ctx context.Context, caller Identity, in CreateListingInput) (models.Bike, error) {
	seller, err := s.roles.Authorize(ctx, caller, models.RoleSeller, models.RoleAdmin)
	if err != nil {
		return models.Bike{}, err
	}

	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" || strings.TrimSpace(in.Title) == "" {
		return models.Bike{}, fmt.Errorf("%w: title and category are required", status.ErrInvalidInput)
	}
	if in.Price <= 0 {
		return models.Bike{}, fmt.Errorf("%w: price must be positive", status.ErrInvalidAmount)
	}

	bike := models.Bike{
		OwnerEmail:  seller.Email,
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Location:    in.Location,
		Price:       in.Price,
		Status:      models.ListingAvailable,
	}

	id, err := s.db.Insert(ctx, store.Bikes, bike.Document())
	if err != nil {
		return models.Bike{}, err
	}
	bike.ID = id
	return bike, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (models.Bike, error) {
	doc, err := s.db.FindByID(ctx, store.Bikes, id)
	if err != nil {
		return models.Bike{}, err
	}
	return models.BikeFromDocument(doc), nil
}

// AvailableByCategory never returns sold listings.
func (s *ListingService) AvailableByCategory(ctx context.Context, category string) ([]models.Bike, error) {
	return s.find(ctx, store.Filter{
		"category": category,
		"status":   string(models.ListingAvailable),
	})
}

func (s *ListingService) Advertised(ctx context.Context) ([]models.Bike, error) {
	return s.find(ctx, store.Filter{
		"advertised": true,
		"status":     string(models.ListingAvailable),
	})
}

// ListBySeller returns every listing of email, sold ones included.
func (s *ListingService) ListBySeller(ctx context.Context, caller Identity, email string) ([]models.Bike, error) {
	u, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return nil, err
	}
	if u.Email != email && u.Role != models.RoleAdmin {
		return nil, status.ErrForbidden
	}
	return s.find(ctx, store.Filter{"owner_email": email})
}

// Advertise flags an available listing. The write is conditioned on the
// listing still being available, so it cannot race a settlement.
func (s *ListingService) Advertise(ctx context.Context, caller Identity, id string) (models.Bike, error) {
	u, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return models.Bike{}, err
	}

	bike, err := s.Get(ctx, id)
	if err != nil {
		return models.Bike{}, err
	}
	if bike.OwnerEmail != u.Email {
		return models.Bike{}, status.ErrForbidden
	}
	if !bike.Available() {
		return models.Bike{}, status.ErrAlreadySettled
	}

	n, err := s.db.Update(ctx, store.Bikes,
		store.Filter{"id": id, "status": string(models.ListingAvailable)},
		store.Document{"advertised": true})
	if err != nil {
		return models.Bike{}, err
	}
	if n == 0 {
		return models.Bike{}, status.ErrAlreadySettled
	}

	bike.Advertised = true
	return bike, nil
}

func (s *ListingService) Delete(ctx context.Context, caller Identity, id string) error {
	u, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return err
	}

	bike, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bike.OwnerEmail != u.Email && u.Role != models.RoleAdmin {
		return status.ErrForbidden
	}

	n, err := s.db.Delete(ctx, store.Bikes, store.Filter{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return status.ErrNotFound
	}
	return nil
}

func (s *ListingService) find(ctx context.Context, filter store.Filter) ([]models.Bike, error) {
	docs, err := s.db.Find(ctx, store.Bikes, filter)
	if err != nil {
		return nil, err
	}

	bikes := make([]models.Bike, 0, len(docs))
	for _, d := range docs {
		bikes = append(bikes, models.BikeFromDocument(d))
	}
	return bikes, nil
}
