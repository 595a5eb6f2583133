package config

import (
	"sync"

	derrors "github.com/e-grid/e-grid/internal/errors"
)

// Service manages configuration with thread-safe access and reload
// notification, replacing the process-global configuration pattern the
// server would otherwise be tempted to use.
type Service struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	watchers []chan<- *Config
}

// NewService creates a configuration service seeded with cfg.
func NewService(cfg *Config, path string) *Service {
	return &Service{config: cfg, path: path}
}

// Get returns the current configuration.
func (s *Service) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config
}

// Path returns the configuration file path in use.
func (s *Service) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.path
}

// Watch registers a channel that receives the new configuration on every
// successful Reload. The channel is never closed by the service.
func (s *Service) Watch(ch chan<- *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watchers = append(s.watchers, ch)
}

// Reload re-reads and validates the configuration at path, swapping it in
// atomically on success and notifying watchers.
func (s *Service) Reload(path string) error {
	result := LoadWithValidation(path)
	if result.ValidationError != nil {
		return derrors.Wrap(result.ValidationError, derrors.CodeInvalidConfig, "configuration reload failed validation")
	}

	s.mu.Lock()
	s.config = result.Config
	s.path = path
	watchers := make([]chan<- *Config, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	for _, w := range watchers {
		select {
		case w <- result.Config:
		default:
			// Never block the reloader on a slow watcher.
		}
	}

	return nil
}
