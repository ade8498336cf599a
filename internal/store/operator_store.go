package store

import (
	"context"

	users "github.com/AdamBeresnev/championship-draw/internal/user"
	"github.com/jmoiron/sqlx"
)

type OperatorStore struct {
	db *sqlx.DB
}

const (
	getOperatorQuery           = "SELECT * FROM operators WHERE id = ?"
	getOperatorByProviderQuery = `
		SELECT * FROM operators
		WHERE provider = ?
		AND provider_id = ?
	`
	createOperatorQuery = `
		INSERT INTO operators (id, email, username, provider, provider_id, avatar_url) VALUES
		(:id, :email, :username, :provider, :provider_id, :avatar_url)
	`
	updateOperatorProfileQuery = `
		UPDATE operators SET
		email = :email,
		username = :username,
		avatar_url = :avatar_url,
		last_login_at = CURRENT_TIMESTAMP
		WHERE id = :id
	`
)

func NewOperatorStore(db *sqlx.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

func (s *OperatorStore) GetOperatorByProvider(ctx context.Context, provider string, providerID string) (*users.Operator, error) {
	var operator users.Operator
	err := s.db.GetContext(ctx, &operator, getOperatorByProviderQuery, provider, providerID)
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

func (s *OperatorStore) GetOperator(ctx context.Context, id interface{}) (*users.Operator, error) {
	var operator users.Operator
	err := s.db.GetContext(ctx, &operator, getOperatorQuery, id)
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

func (s *OperatorStore) CreateOperator(ctx context.Context, operator *users.Operator) error {
	_, err := s.db.NamedExecContext(ctx, createOperatorQuery, operator)
	return err
}

// UpdateOperatorProfile refreshes the provider profile and stamps the login
func (s *OperatorStore) UpdateOperatorProfile(ctx context.Context, operator *users.Operator) error {
	_, err := s.db.NamedExecContext(ctx, updateOperatorProfileQuery, operator)
	return err
}
