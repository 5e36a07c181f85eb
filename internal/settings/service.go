package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

// Well-known setting keys.
const (
	KeyPricingMethod = "pricing_method"
)

// ErrNotFound indicates a setting key with no stored value.
var ErrNotFound = errors.New("settings: not found")

// Repository abstracts key/value storage.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Service reads and writes application settings with a Redis read-through
// cache in front of storage. A nil client degrades to uncached reads.
type Service struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
}

// NewService builds Service.
func NewService(repo Repository, client *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, client: client, ttl: ttl}
}

func cacheKey(key string) string {
	return "settings:" + key
}

// Get returns the stored value for key, consulting the cache first.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if s.client != nil {
		cached, err := s.client.Get(ctx, cacheKey(key)).Result()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			return "", err
		}
	}
	value, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if s.client != nil {
		if err := s.client.Set(ctx, cacheKey(key), value, s.ttl).Err(); err != nil {
			return "", err
		}
	}
	return value, nil
}

// Set stores the value and drops the cached copy so the next read sees it.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	if s.client != nil {
		return s.client.Del(ctx, cacheKey(key)).Err()
	}
	return nil
}

// PricingMethod returns the configured costing policy, defaulting to FIFO
// when none is stored. Satisfies the inventory settings port.
func (s *Service) PricingMethod(ctx context.Context) (inventory.PricingMethod, error) {
	value, err := s.Get(ctx, KeyPricingMethod)
	if errors.Is(err, ErrNotFound) {
		return inventory.MethodFIFO, nil
	}
	if err != nil {
		return "", err
	}
	method := inventory.PricingMethod(value)
	if !method.Valid() {
		return "", fmt.Errorf("%w: %q", inventory.ErrUnknownPricingMethod, value)
	}
	return method, nil
}

// SetPricingMethod validates and stores the costing policy.
func (s *Service) SetPricingMethod(ctx context.Context, method inventory.PricingMethod) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", inventory.ErrUnknownPricingMethod, method)
	}
	return s.Set(ctx, KeyPricingMethod, string(method))
}
