package app

import (
	"context"
	"strings"
	"sync"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
)

// SettingsService garde la table config en mémoire; elle est persistée par
// le snapshot périodique avec les comptes et les séries.
type SettingsService struct {
	mu       sync.RWMutex
	current  domain.Settings
	onUpdate []func(domain.Settings)
}

func NewSettingsService(initial domain.Settings) *SettingsService {
	return &SettingsService{current: normalizeSettings(initial)}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// OnUpdate enregistre un hook appelé après chaque Put (ex: ajuster la gate des requêtes).
func (s *SettingsService) OnUpdate(fn func(domain.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = append(s.onUpdate, fn)
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	settings = normalizeSettings(settings)

	s.mu.Lock()
	s.current = settings
	hooks := append([]func(domain.Settings){}, s.onUpdate...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(settings)
	}
	return settings, nil
}

func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.BindAddr = strings.TrimSpace(settings.BindAddr)
	if settings.BindAddr == "" {
		settings.BindAddr = domain.DefaultSettings().BindAddr
	}
	if settings.MaxConcurrentRequests <= 0 {
		settings.MaxConcurrentRequests = domain.DefaultSettings().MaxConcurrentRequests
	}
	return settings
}
