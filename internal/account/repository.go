package account

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles account data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account into the database
func (r *Repository) Create(ctx context.Context, req *CreateAccountRequest) (*Account, error) {
	query := `
		INSERT INTO accounts (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id, name, phone, email, created_at
	`

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, req.Name, req.Phone, req.Email).Scan(
		&account.ID,
		&account.Name,
		&account.Phone,
		&account.Email,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT id, name, phone, email, created_at
		FROM accounts
		WHERE id = $1
	`

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Phone,
		&account.Email,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetByPhone retrieves an account by phone number
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Account, error) {
	query := `
		SELECT id, name, phone, email, created_at
		FROM accounts
		WHERE phone = $1
	`

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, phone).Scan(
		&account.ID,
		&account.Name,
		&account.Phone,
		&account.Email,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by phone: %w", err)
	}

	return account, nil
}

// List retrieves accounts with pagination
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	query := `
		SELECT id, name, phone, email, created_at
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account := &Account{}
		if err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.Phone,
			&account.Email,
			&account.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, total, nil
}

// Update modifies an existing account
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateAccountRequest) (*Account, error) {
	query := `
		UPDATE accounts
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email)
		WHERE id = $1
		RETURNING id, name, phone, email, created_at
	`

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, id, req.Name, req.Email).Scan(
		&account.ID,
		&account.Name,
		&account.Phone,
		&account.Email,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return account, nil
}
