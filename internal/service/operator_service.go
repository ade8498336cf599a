package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/store"
	users "github.com/AdamBeresnev/championship-draw/internal/user"
	"github.com/AdamBeresnev/championship-draw/internal/utils"
	"github.com/google/uuid"
	"github.com/markbates/goth"
)

var ErrNotAdmin = errors.New("account is not allowed to administer the draw")

type OperatorService struct {
	store       *store.OperatorStore
	adminEmails []string
	allowGuest  bool
}

func NewOperatorService(store *store.OperatorStore, adminEmails []string, allowGuest bool) *OperatorService {
	emails := make([]string, 0, len(adminEmails))
	for _, e := range adminEmails {
		emails = append(emails, strings.ToLower(strings.TrimSpace(e)))
	}
	return &OperatorService{store: store, adminEmails: emails, allowGuest: allowGuest}
}

func (s *OperatorService) GuestAllowed() bool {
	return s.allowGuest
}

func (s *OperatorService) isAdmin(email string) bool {
	return email != "" && slices.Contains(s.adminEmails, strings.ToLower(strings.TrimSpace(email)))
}

// FindOrCreateOperatorByProvider admits an OAuth login whose email is on the
// admin list
func (s *OperatorService) FindOrCreateOperatorByProvider(ctx context.Context, gothUser goth.User) (*users.Operator, error) {
	if !s.isAdmin(gothUser.Email) {
		return nil, fmt.Errorf("%w: %s", ErrNotAdmin, gothUser.Email)
	}

	username := gothUser.NickName
	if username == "" {
		username = gothUser.Name
	}

	operator, err := s.store.GetOperatorByProvider(ctx, gothUser.Provider, gothUser.UserID)
	if err == nil {
		operator.Email = gothUser.Email
		operator.Username = username
		operator.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
		if err := s.store.UpdateOperatorProfile(ctx, operator); err != nil {
			return nil, err
		}
		return operator, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		operator := &users.Operator{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   username,
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		if err := s.store.CreateOperator(ctx, operator); err != nil {
			return nil, err
		}
		return operator, nil
	}

	return nil, err
}

func (s *OperatorService) EnsureGuestOperator(ctx context.Context) (*users.Operator, error) {
	if !s.allowGuest {
		return nil, fmt.Errorf("%w: guest access is disabled", ErrNotAdmin)
	}

	operator, err := s.store.GetOperator(ctx, users.GuestID)
	if err == nil {
		return operator, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		guest := &users.Operator{
			ID:       users.GuestID,
			Email:    "guest@championship-draw.local",
			Username: "Guest Operator",
		}
		if err := s.store.CreateOperator(ctx, guest); err != nil {
			return nil, err
		}
		return guest, nil
	}
	return nil, err
}
