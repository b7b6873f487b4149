package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ResourceRepository handles resource database operations
type ResourceRepository struct {
	db *sql.DB
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// CreateResource creates a new resource
func (r *ResourceRepository) CreateResource(ctx context.Context, resource *models.Resource) error {
	query := `
		INSERT INTO resources (
			id, name, resource_type, rules, maintenance_windows, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(
		ctx, query,
		resource.ID, resource.Name, resource.ResourceType,
		resource.Rules, resource.Maintenance, resource.Enabled,
		resource.CreatedAt, resource.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	return nil
}

// UpdateResource updates a resource's rules and maintenance windows
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource *models.Resource) error {
	query := `
		UPDATE resources
		SET name = $2,
		    resource_type = $3,
		    rules = $4,
		    maintenance_windows = $5,
		    enabled = $6,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(
		ctx, query,
		resource.ID, resource.Name, resource.ResourceType,
		resource.Rules, resource.Maintenance, resource.Enabled,
	)

	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("resource not found")
	}

	return nil
}

// DeleteResource deletes a resource by ID
func (r *ResourceRepository) DeleteResource(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("resource not found")
	}

	return nil
}

// GetResource retrieves a resource by ID
func (r *ResourceRepository) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	resource := &models.Resource{}
	query := `
		SELECT id, name, resource_type, rules, maintenance_windows, enabled,
		       created_at, updated_at
		FROM resources
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&resource.ID, &resource.Name, &resource.ResourceType,
		&resource.Rules, &resource.Maintenance, &resource.Enabled,
		&resource.CreatedAt, &resource.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resource not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	return resource, nil
}

// ListResources retrieves resources, optionally filtered by type
func (r *ResourceRepository) ListResources(ctx context.Context, resourceType *string, limit, offset int) ([]models.Resource, int64, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM resources
		WHERE ($1::varchar IS NULL OR resource_type = $1)`

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, resourceType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count resources: %w", err)
	}

	query := `
		SELECT id, name, resource_type, rules, maintenance_windows, enabled,
		       created_at, updated_at
		FROM resources
		WHERE ($1::varchar IS NULL OR resource_type = $1)
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, resourceType, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		resource := models.Resource{}
		err := rows.Scan(
			&resource.ID, &resource.Name, &resource.ResourceType,
			&resource.Rules, &resource.Maintenance, &resource.Enabled,
			&resource.CreatedAt, &resource.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, resource)
	}

	return resources, total, nil
}

// ListResourceTypes retrieves the distinct resource types in use
func (r *ResourceRepository) ListResourceTypes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT resource_type FROM resources ORDER BY resource_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan resource type: %w", err)
		}
		types = append(types, t)
	}

	return types, nil
}

// SetEnabled toggles a resource's availability for new bookings
func (r *ResourceRepository) SetEnabled(ctx context.Context, ids []uuid.UUID, enabled bool) error {
	query := `
		UPDATE resources
		SET enabled = $2, updated_at = NOW()
		WHERE id = ANY($1)`

	_, err := r.db.ExecContext(ctx, query, pq.Array(ids), enabled)
	if err != nil {
		return fmt.Errorf("failed to set resource enabled flag: %w", err)
	}

	return nil
}
