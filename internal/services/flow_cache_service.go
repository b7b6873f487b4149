package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/database"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlowRepository defines the flow configuration persistence
type FlowRepository interface {
	GetFlow(ctx context.Context, id uuid.UUID) (*models.ApprovalFlowConfig, error)
	FindFlowForResourceType(ctx context.Context, resourceType string) (*models.ApprovalFlowConfig, error)
	ListFlows(ctx context.Context) ([]models.ApprovalFlowConfig, error)
	CreateFlow(ctx context.Context, flow *models.ApprovalFlowConfig) error
	DeleteFlow(ctx context.Context, id uuid.UUID) error
}

// FlowCacheService is a read-through Redis cache over flow configurations.
// Flows are immutable reference data read on every approval transition, so
// they cache well; writes invalidate.
type FlowCacheService struct {
	repo    FlowRepository
	cache   *database.RedisClient
	metrics *metrics.Metrics
	logger  *logger.Logger
	ttl     time.Duration
}

// NewFlowCacheService creates a new flow cache service
func NewFlowCacheService(repo FlowRepository, cache *database.RedisClient, m *metrics.Metrics, log *logger.Logger, ttl time.Duration) *FlowCacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FlowCacheService{
		repo:    repo,
		cache:   cache,
		metrics: m,
		logger:  log,
		ttl:     ttl,
	}
}

// GetFlow retrieves a flow by ID, preferring the cache
func (s *FlowCacheService) GetFlow(ctx context.Context, id uuid.UUID) (*models.ApprovalFlowConfig, error) {
	key := "flow:" + id.String()

	if flow := s.lookup(ctx, key); flow != nil {
		return flow, nil
	}

	flow, err := s.repo.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, flow)
	return flow, nil
}

// FindFlowForResourceType retrieves the flow configured for a resource
// type, preferring the cache
func (s *FlowCacheService) FindFlowForResourceType(ctx context.Context, resourceType string) (*models.ApprovalFlowConfig, error) {
	key := "flow:type:" + resourceType

	if flow := s.lookup(ctx, key); flow != nil {
		return flow, nil
	}

	flow, err := s.repo.FindFlowForResourceType(ctx, resourceType)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, flow)
	return flow, nil
}

// ListFlows retrieves all flows, bypassing the cache
func (s *FlowCacheService) ListFlows(ctx context.Context) ([]models.ApprovalFlowConfig, error) {
	return s.repo.ListFlows(ctx)
}

// CreateFlow persists a new flow and invalidates its resource type keys
func (s *FlowCacheService) CreateFlow(ctx context.Context, flow *models.ApprovalFlowConfig) error {
	if err := s.repo.CreateFlow(ctx, flow); err != nil {
		return err
	}
	s.invalidate(ctx, flow)
	return nil
}

// DeleteFlow removes a flow and invalidates its cache keys
func (s *FlowCacheService) DeleteFlow(ctx context.Context, id uuid.UUID) error {
	flow, err := s.repo.GetFlow(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFlow(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, flow)
	return nil
}

func (s *FlowCacheService) lookup(ctx context.Context, key string) *models.ApprovalFlowConfig {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, key)
	if err == redis.Nil {
		s.countCache("miss")
		return nil
	}
	if err != nil {
		s.logger.Warnf("flow cache read failed for %s: %v", key, err)
		s.countCache("error")
		return nil
	}

	flow := &models.ApprovalFlowConfig{}
	if err := json.Unmarshal([]byte(raw), flow); err != nil {
		s.logger.Warnf("flow cache entry %s is corrupt, dropping: %v", key, err)
		_ = s.cache.Delete(ctx, key)
		s.countCache("error")
		return nil
	}

	s.countCache("hit")
	return flow
}

func (s *FlowCacheService) store(ctx context.Context, key string, flow *models.ApprovalFlowConfig) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(flow)
	if err != nil {
		s.logger.Warnf("failed to marshal flow for cache: %v", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warnf("flow cache write failed for %s: %v", key, err)
	}
}

func (s *FlowCacheService) invalidate(ctx context.Context, flow *models.ApprovalFlowConfig) {
	if s.cache == nil {
		return
	}

	keys := []string{"flow:" + flow.ID.String()}
	for _, rt := range flow.ResourceTypes {
		keys = append(keys, "flow:type:"+rt)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warnf("flow cache invalidation failed: %v", err)
	}
}

func (s *FlowCacheService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.FlowCacheHits.WithLabelValues(result).Inc()
	}
}

var _ FlowFinder = (*FlowCacheService)(nil)
