package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/backend/internal/models"
)

// Repository handles user and refresh-token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, tenant_id, email, password_hash, full_name, is_super_admin, is_tenant_manager,
		created_at, updated_at FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.TenantID, &u.Email, &u.Password, &u.FullName,
		&u.IsSuperAdmin, &u.IsTenantManager, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email, or nil if absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, tenant_id, email, password_hash, full_name, is_super_admin, is_tenant_manager,
		created_at, updated_at FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.TenantID, &u.Email, &u.Password, &u.FullName,
		&u.IsSuperAdmin, &u.IsTenantManager, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, email, passwordHash, fullName string) (*models.User, error) {
	const q = `INSERT INTO users (tenant_id, email, password_hash, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	u := models.User{TenantID: tenantID, Email: email, Password: passwordHash, FullName: fullName}
	if err := r.pool.QueryRow(ctx, q, tenantID, email, passwordHash, fullName).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetTenantBySlug returns a tenant by slug, or nil if absent.
func (r *Repository) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	const q = `SELECT id, name, slug, created_at, updated_at FROM tenants WHERE slug = $1`
	var t models.Tenant
	err := r.pool.QueryRow(ctx, q, slug).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTenant inserts a tenant.
func (r *Repository) CreateTenant(ctx context.Context, name, slug string) (*models.Tenant, error) {
	const q = `INSERT INTO tenants (name, slug) VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	t := models.Tenant{Name: name, Slug: slug}
	if err := r.pool.QueryRow(ctx, q, name, slug).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// hashToken returns the sha256 hex of a refresh-token JTI. Only the hash is
// stored so a database leak does not expose usable tokens.
func hashToken(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return hex.EncodeToString(sum[:])
}

// StoreRefreshToken persists a refresh-token JTI hash.
func (r *Repository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, q, userID, hashToken(jti), expiresAt)
	return err
}

// RefreshTokenValid reports whether the JTI is stored, unrevoked and unexpired.
func (r *Repository) RefreshTokenValid(ctx context.Context, jti string) (bool, error) {
	const q = `SELECT 1 FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()`
	var one int
	err := r.pool.QueryRow(ctx, q, hashToken(jti)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeRefreshToken marks the JTI revoked. Revoking an unknown token is a no-op.
func (r *Repository) RevokeRefreshToken(ctx context.Context, jti string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`
	_, err := r.pool.Exec(ctx, q, hashToken(jti))
	return err
}

// RevokeAllForUser revokes every live refresh token of a user (logout-all).
func (r *Repository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.pool.Exec(ctx, q, userID)
	return err
}
