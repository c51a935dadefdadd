package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"

	"bike-market/internal/status"
	"bike-market/internal/store"
	"bike-market/models"
)

type RoleService struct {
	db     store.Store
	tokens *TokenService
}

func NewRoleService(db store.Store, tokens *TokenService) *RoleService {
	return &RoleService{db: db, tokens: tokens}
}

// Lookup reads the user record for email.
func (s *RoleService) Lookup(ctx context.Context, email string) (models.User, error) {
	docs, err := s.db.Find(ctx, store.Users, store.Filter{"email": email})
	if err != nil {
		return models.User{}, err
	}
	if len(docs) == 0 {
		return models.User{}, status.ErrNotFound
	}
	return models.UserFromDocument(docs[0]), nil
}

// Authorize re-reads the caller's stored role and checks it against allowed.
// An empty allowed list only requires the user to exist.
func (s *RoleService) Authorize(ctx context.Context, id Identity, allowed ...models.Role) (models.User, error) {
	if id.Email == "" {
		return models.User{}, status.ErrUnauthenticated
	}

	u, err := s.Lookup(ctx, id.Email)
	if errors.Is(err, status.ErrNotFound) {
		// a valid credential for a removed user
		return models.User{}, status.ErrForbidden
	}
	if err != nil {
		return models.User{}, err
	}

	if len(allowed) > 0 && !slices.Contains(allowed, u.Role) {
		return u, status.ErrForbidden
	}
	return u, nil
}

type UpsertUserInput struct {
	Name     string      `json:"name"`
	PhotoURL string      `json:"photoURL"`
	Role     models.Role `json:"role"`
}

// Upsert creates or refreshes the user record for email on login and issues
// a fresh credential. The stored role is only written when it changes, and
// then conditioned on the role that was read, so a concurrent admin change is
// never reverted by a login.
func (s *RoleService) Upsert(ctx context.Context, email string, in UpsertUserInput) (models.User, string, error) {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.User{}, "", fmt.Errorf("%w: invalid email %q", status.ErrInvalidInput, email)
	}

	u, err := s.Lookup(ctx, email)
	if errors.Is(err, status.ErrNotFound) {
		u, err = s.register(ctx, email, in)
	}
	if err != nil {
		return models.User{}, "", err
	}

	if u, err = s.refresh(ctx, u, in); err != nil {
		return models.User{}, "", err
	}

	token, err := s.tokens.Issue(email)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// register inserts a first-time user. Losing the insert to a concurrent
// login for the same email falls back to the record that won.
func (s *RoleService) register(ctx context.Context, email string, in UpsertUserInput) (models.User, error) {
	role, err := selfServiceRole(models.RoleNone, in.Role)
	if err != nil {
		return models.User{}, err
	}

	doc := store.Document{"email": email, "role": string(role)}
	if in.Name != "" {
		doc["name"] = in.Name
	}
	if in.PhotoURL != "" {
		doc["photo_url"] = in.PhotoURL
	}

	id, err := s.db.Insert(ctx, store.Users, doc)
	if err != nil {
		u, lookupErr := s.Lookup(ctx, email)
		if lookupErr != nil {
			return models.User{}, err
		}
		return u, nil
	}

	doc["id"] = id
	return models.UserFromDocument(doc), nil
}

// refresh applies a returning user's requested role and profile fields.
func (s *RoleService) refresh(ctx context.Context, u models.User, in UpsertUserInput) (models.User, error) {
	role, err := selfServiceRole(u.Role, in.Role)
	if err != nil {
		return models.User{}, err
	}

	if role != u.Role {
		n, err := s.db.Update(ctx, store.Users,
			store.Filter{"id": u.ID, "role": string(u.Role)},
			store.Document{"role": string(role)})
		if err != nil {
			return models.User{}, err
		}
		if n == 0 {
			slog.Info("role changed during login, keeping stored role", "user_id", u.ID, "requested", role)
		}
	}

	set := store.Document{}
	if in.Name != "" && in.Name != u.Name {
		set["name"] = in.Name
	}
	if in.PhotoURL != "" && in.PhotoURL != u.PhotoURL {
		set["photo_url"] = in.PhotoURL
	}
	if len(set) > 0 {
		if _, err := s.db.Update(ctx, store.Users, store.Filter{"id": u.ID}, set); err != nil {
			return models.User{}, err
		}
	}

	doc, err := s.db.FindByID(ctx, store.Users, u.ID)
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromDocument(doc), nil
}

// selfServiceRole resolves the role a user may give themselves. Admins keep
// their role whatever they ask for.
func selfServiceRole(current, requested models.Role) (models.Role, error) {
	if current == models.RoleAdmin || requested == "" || requested == current {
		return current, nil
	}

	switch requested {
	case models.RoleSeller:
		if current == models.RoleNone {
			return models.RoleSeller, nil
		}
		return "", status.ErrForbidden
	case models.RoleSellerRequest:
		return models.RoleSellerRequest, nil
	case models.RoleNone, models.RoleAdmin:
		return "", status.ErrForbidden
	default:
		return "", fmt.Errorf("%w: %q", status.ErrInvalidRole, requested)
	}
}

// RequestSeller marks the caller as waiting for seller confirmation.
func (s *RoleService) RequestSeller(ctx context.Context, id Identity) (models.User, error) {
	u, err := s.Authorize(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	role, err := selfServiceRole(u.Role, models.RoleSellerRequest)
	if err != nil {
		return models.User{}, err
	}
	if role == u.Role {
		return u, nil
	}

	// conditioned on the role we read so a concurrent admin change wins
	n, err := s.db.Update(ctx, store.Users,
		store.Filter{"id": u.ID, "role": string(u.Role)},
		store.Document{"role": string(role)})
	if err != nil {
		return models.User{}, err
	}
	if n == 0 {
		return s.Lookup(ctx, id.Email)
	}

	u.Role = role
	return u, nil
}

// SetRole is the admin-only role change used to confirm or revoke sellers.
func (s *RoleService) SetRole(ctx context.Context, caller Identity, userID string, role models.Role) (models.User, error) {
	admin, err := s.Authorize(ctx, caller, models.RoleAdmin)
	if err != nil {
		return models.User{}, err
	}
	if !role.Valid() {
		return models.User{}, fmt.Errorf("%w: %q", status.ErrInvalidRole, role)
	}

	n, err := s.db.Update(ctx, store.Users, store.Filter{"id": userID}, store.Document{"role": string(role)})
	if err != nil {
		return models.User{}, err
	}
	if n == 0 {
		return models.User{}, status.ErrNotFound
	}

	slog.Info("user role changed", "user_id", userID, "role", role, "by", admin.Email)

	doc, err := s.db.FindByID(ctx, store.Users, userID)
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromDocument(doc), nil
}

func (s *RoleService) DeleteUser(ctx context.Context, caller Identity, userID string) error {
	admin, err := s.Authorize(ctx, caller, models.RoleAdmin)
	if err != nil {
		return err
	}

	n, err := s.db.Delete(ctx, store.Users, store.Filter{"id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return status.ErrNotFound
	}

	slog.Info("user deleted", "user_id", userID, "by", admin.Email)
	return nil
}

// ListByRole returns users holding role, or every user for an empty role.
func (s *RoleService) ListByRole(ctx context.Context, caller Identity, role models.Role) ([]models.User, error) {
	if _, err := s.Authorize(ctx, caller, models.RoleAdmin); err != nil {
		return nil, err
	}

	filter := store.Filter{}
	if role != "" {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: %q", status.ErrInvalidRole, role)
		}
		filter["role"] = string(role)
	}

	docs, err := s.db.Find(ctx, store.Users, filter)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, models.UserFromDocument(d))
	}
	return users, nil
}

// RoleOf reports the stored role of email. Only the user themselves or an
// admin may ask.
func (s *RoleService) RoleOf(ctx context.Context, caller Identity, email string) (models.RoleInfo, error) {
	u, err := s.Authorize(ctx, caller)
	if err != nil {
		return models.RoleInfo{}, err
	}
	if u.Email == email {
		return u.RoleInfo(), nil
	}
	if u.Role != models.RoleAdmin {
		return models.RoleInfo{}, status.ErrForbidden
	}

	target, err := s.Lookup(ctx, email)
	if err != nil {
		return models.RoleInfo{}, err
	}
	return target.RoleInfo(), nil
}
