package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// ClientRepository resolves client-directory entries at ticket creation.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates repository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	const query = `
        SELECT id, last_name, COALESCE(first_name, ''), COALESCE(client_type, ''), COALESCE(agency_code, '')
        FROM clients WHERE id=$1`
	var client domain.Client
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.LastName,
		&client.FirstName,
		&client.ClientType,
		&client.AgencyCode,
	); err != nil {
		return nil, err
	}
	return &client, nil
}
