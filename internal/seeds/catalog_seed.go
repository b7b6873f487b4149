package seeds

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/lib/pq"
)

// CatalogSeeder seeds sample resources and approval flow configurations
type CatalogSeeder struct {
	db *sql.DB
}

// NewCatalogSeeder creates a new catalog seeder
func NewCatalogSeeder(db *sql.DB) *CatalogSeeder {
	return &CatalogSeeder{db: db}
}

// SeedResource is one resource definition to seed
type SeedResource struct {
	Name         string
	ResourceType string
	Rules        models.AvailabilityRules
	Maintenance  models.MaintenanceWindows
}

// SeedFlow is one approval flow definition to seed
type SeedFlow struct {
	Name          string
	ResourceTypes []string
	Steps         models.ApprovalSteps
	AutoApprove   models.AutoApproveConditions
}

// GetDefaultResources returns sample resources covering the main booking
// shapes: open rooms, approval-gated labs, and equipment with buffers.
func GetDefaultResources() []SeedResource {
	return []SeedResource{
		{
			Name:         "Study Room 101",
			ResourceType: "meeting_room",
			Rules: models.AvailabilityRules{
				MinDurationMinutes:    30,
				MaxDurationMinutes:    240,
				MaxAdvanceBookingDays: 30,
				AllowRecurring:        true,
			},
		},
		{
			Name:         "Chemistry Lab A",
			ResourceType: "lab",
			Rules: models.AvailabilityRules{
				RequiresApproval:      true,
				MinDurationMinutes:    60,
				MaxDurationMinutes:    480,
				BufferMinutes:         30,
				MaxAdvanceBookingDays: 90,
				AllowRecurring:        true,
			},
			Maintenance: models.MaintenanceWindows{
				{
					CronExpression:  "0 6 * * 1",
					DurationMinutes: 120,
					Description:     "Weekly equipment calibration",
				},
			},
		},
		{
			Name:         "Electron Microscope",
			ResourceType: "equipment",
			Rules: models.AvailabilityRules{
				RequiresApproval:      true,
				MinDurationMinutes:    60,
				MaxDurationMinutes:    240,
				BufferMinutes:         60,
				MaxAdvanceBookingDays: 60,
			},
		},
	}
}

// GetDefaultFlows returns the approval flows bound to the seeded resource
// types.
func GetDefaultFlows() []SeedFlow {
	twentyFourHours := 24
	fortyEightHours := 48

	return []SeedFlow{
		{
			Name:          "Lab booking review",
			ResourceTypes: []string{"lab"},
			Steps: models.ApprovalSteps{
				{
					Order:         1,
					Name:          "Lab manager review",
					ApproverRoles: []string{"lab_manager"},
					IsRequired:    true,
					TimeoutHours:  &twentyFourHours,
				},
				{
					Order:         2,
					Name:          "Department head sign-off",
					ApproverRoles: []string{"department_head"},
					IsRequired:    false,
					TimeoutHours:  &fortyEightHours,
				},
			},
			AutoApprove: models.AutoApproveConditions{
				"duration_minutes": {Operator: "lte", Value: 120},
			},
		},
		{
			Name:          "Equipment booking review",
			ResourceTypes: []string{"equipment"},
			Steps: models.ApprovalSteps{
				{
					Order:         1,
					Name:          "Facility review",
					ApproverRoles: []string{"facility_manager"},
					IsRequired:    true,
					TimeoutHours:  &twentyFourHours,
				},
			},
		},
	}
}

// SeedAll seeds resources and approval flows. Existing rows with the same
// name are left untouched.
func (s *CatalogSeeder) SeedAll(ctx context.Context) error {
	log.Println("Starting catalog seeding...")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.seedResources(ctx, tx); err != nil {
		return fmt.Errorf("failed to seed resources: %w", err)
	}

	if err := s.seedFlows(ctx, tx); err != nil {
		return fmt.Errorf("failed to seed flows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Println("Catalog seeding completed successfully!")
	return nil
}

func (s *CatalogSeeder) seedResources(ctx context.Context, tx *sql.Tx) error {
	log.Println("Seeding resources...")

	for _, res := range GetDefaultResources() {
		rules, err := json.Marshal(res.Rules)
		if err != nil {
			return fmt.Errorf("failed to marshal rules for %s: %w", res.Name, err)
		}
		maintenance, err := json.Marshal(res.Maintenance)
		if err != nil {
			return fmt.Errorf("failed to marshal maintenance for %s: %w", res.Name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO resources (id, name, resource_type, rules, maintenance_windows, enabled, created_at, updated_at)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, true, NOW(), NOW())
			ON CONFLICT (name) DO NOTHING
		`, res.Name, res.ResourceType, rules, maintenance)

		if err != nil {
			return fmt.Errorf("failed to insert resource %s: %w", res.Name, err)
		}
		log.Printf("  ✓ Resource: %s (%s)", res.Name, res.ResourceType)
	}

	return nil
}

func (s *CatalogSeeder) seedFlows(ctx context.Context, tx *sql.Tx) error {
	log.Println("Seeding approval flows...")

	for _, flow := range GetDefaultFlows() {
		steps, err := json.Marshal(flow.Steps)
		if err != nil {
			return fmt.Errorf("failed to marshal steps for %s: %w", flow.Name, err)
		}
		conditions, err := json.Marshal(flow.AutoApprove)
		if err != nil {
			return fmt.Errorf("failed to marshal auto-approve conditions for %s: %w", flow.Name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO approval_flows (id, name, resource_types, steps, auto_approve_conditions, created_at)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW())
			ON CONFLICT (name) DO NOTHING
		`, flow.Name, pq.Array(flow.ResourceTypes), steps, conditions)

		if err != nil {
			return fmt.Errorf("failed to insert flow %s: %w", flow.Name, err)
		}
		log.Printf("  ✓ Flow: %s -> %v", flow.Name, flow.ResourceTypes)
	}

	return nil
}
