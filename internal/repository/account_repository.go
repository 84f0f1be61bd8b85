package repository

import (
	"database/sql"

	"github.com/unclebandit/dmcampaign-backend/internal/model"
)

type AccountRepositoryInterface interface {
	GetByID(id int) (*model.Account, error)
}

type AccountRepository struct {
	DB *sql.DB
}

func (r *AccountRepository) GetByID(id int) (*model.Account, error) {
	query := `
        SELECT id, username, display_name, connection_status, auth_token, created_at
        FROM accounts WHERE id=$1
    `
	var a model.Account
	err := r.DB.QueryRow(query, id).Scan(
		&a.ID, &a.Username, &a.DisplayName, &a.ConnectionStatus, &a.AuthToken, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &a, nil
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
