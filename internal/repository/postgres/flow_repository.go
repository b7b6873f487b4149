package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FlowRepository handles approval flow configuration database operations
type FlowRepository struct {
	db *sql.DB
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(db *sql.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// CreateFlow creates a new approval flow configuration
func (r *FlowRepository) CreateFlow(ctx context.Context, flow *models.ApprovalFlowConfig) error {
	query := `
		INSERT INTO approval_flows (
			id, name, resource_types, steps, auto_approve_conditions, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	if flow.ID == uuid.Nil {
		flow.ID = uuid.New()
	}
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(
		ctx, query,
		flow.ID, flow.Name, pq.Array(flow.ResourceTypes),
		flow.Steps, flow.AutoApproveConditions, flow.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create approval flow: %w", err)
	}

	return nil
}

// GetFlow retrieves a flow configuration by ID
func (r *FlowRepository) GetFlow(ctx context.Context, id uuid.UUID) (*models.ApprovalFlowConfig, error) {
	flow := &models.ApprovalFlowConfig{}
	query := `
		SELECT id, name, resource_types, steps, auto_approve_conditions, created_at
		FROM approval_flows
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&flow.ID, &flow.Name, pq.Array(&flow.ResourceTypes),
		&flow.Steps, &flow.AutoApproveConditions, &flow.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("approval flow not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval flow: %w", err)
	}

	return flow, nil
}

// FindFlowForResourceType retrieves the flow configured for a resource type
func (r *FlowRepository) FindFlowForResourceType(ctx context.Context, resourceType string) (*models.ApprovalFlowConfig, error) {
	flow := &models.ApprovalFlowConfig{}
	query := `
		SELECT id, name, resource_types, steps, auto_approve_conditions, created_at
		FROM approval_flows
		WHERE $1 = ANY(resource_types)
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRowContext(ctx, query, resourceType).Scan(
		&flow.ID, &flow.Name, pq.Array(&flow.ResourceTypes),
		&flow.Steps, &flow.AutoApproveConditions, &flow.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no approval flow configured for resource type %q", resourceType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find approval flow: %w", err)
	}

	return flow, nil
}

// ListFlows retrieves all flow configurations
func (r *FlowRepository) ListFlows(ctx context.Context) ([]models.ApprovalFlowConfig, error) {
	query := `
		SELECT id, name, resource_types, steps, auto_approve_conditions, created_at
		FROM approval_flows
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval flows: %w", err)
	}
	defer rows.Close()

	var flows []models.ApprovalFlowConfig
	for rows.Next() {
		flow := models.ApprovalFlowConfig{}
		err := rows.Scan(
			&flow.ID, &flow.Name, pq.Array(&flow.ResourceTypes),
			&flow.Steps, &flow.AutoApproveConditions, &flow.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval flow: %w", err)
		}
		flows = append(flows, flow)
	}

	return flows, nil
}

// DeleteFlow removes a flow configuration
func (r *FlowRepository) DeleteFlow(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM approval_flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete approval flow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("approval flow not found")
	}

	return nil
}
