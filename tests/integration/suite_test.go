package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/campusbook/scheduling-engine/pkg/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrationSuite holds the test suite configuration
type IntegrationSuite struct {
	DB      *testutil.TestDB
	Pool    *pgxpool.Pool
	BaseURL string
}

var suite *IntegrationSuite

// TestMain sets up and tears down the test suite
func TestMain(m *testing.M) {
	// Check if integration tests should run
	if os.Getenv("INTEGRATION_TESTS") == "" {
		fmt.Println("Skipping integration tests. Set INTEGRATION_TESTS=1 to run.")
		os.Exit(0)
	}

	code := m.Run()

	os.Exit(code)
}

// SetupSuite initializes the test suite
func SetupSuite(t *testing.T) *IntegrationSuite {
	t.Helper()

	if suite != nil {
		return suite
	}

	// Create test database
	db := testutil.SetupTestDB(t)

	// Run migrations
	migrationsPath := "../../migrations"
	if _, err := os.Stat(migrationsPath); err == nil {
		testutil.RunMigrations(t, db, migrationsPath)
	}

	suite = &IntegrationSuite{
		DB:      db,
		Pool:    db.Pool,
		BaseURL: "http://localhost:8080",
	}

	return suite
}

// TeardownSuite cleans up the test suite
func TeardownSuite(t *testing.T) {
	t.Helper()

	if suite != nil && suite.DB != nil {
		suite.DB.Teardown()
		suite = nil
	}
}

// ResetDatabase truncates all tables
func (s *IntegrationSuite) ResetDatabase(t *testing.T) {
	t.Helper()

	tables := []string{
		"approval_history",
		"approval_requests",
		"approval_flows",
		"reservations",
		"resources",
	}

	s.DB.Truncate(tables...)
}

// GetContext returns a context for testing
func (s *IntegrationSuite) GetContext(t *testing.T) context.Context {
	t.Helper()
	return testutil.Context(t)
}
