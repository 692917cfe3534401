package platform

import (
	"fmt"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"
	"social-hub/infrastructure/logger"
)

// Registry is the platform→adapter lookup table, built once at startup. Only
// platforms with a configured client id are registered.
type Registry struct {
	adapters map[model.Platform]repository.IPlatformAdapter
}

func NewRegistry(cfg configuration.OAuth) *Registry {
	r := &Registry{adapters: map[model.Platform]repository.IPlatformAdapter{}}

	register := func(client configuration.OAuthClient, build func(configuration.OAuthClient) repository.IPlatformAdapter) {
		if client.ClientID == "" || client.RedirectURI == "" {
			return
		}
		adapter := build(client)
		r.adapters[adapter.Platform()] = adapter
	}

	register(cfg.Twitter, func(c configuration.OAuthClient) repository.IPlatformAdapter { return NewTwitterAdapter(c) })
	register(cfg.Facebook, func(c configuration.OAuthClient) repository.IPlatformAdapter { return NewFacebookAdapter(c) })
	register(cfg.LinkedIn, func(c configuration.OAuthClient) repository.IPlatformAdapter { return NewLinkedInAdapter(c) })
	register(cfg.TikTok, func(c configuration.OAuthClient) repository.IPlatformAdapter { return NewTikTokAdapter(c) })
	register(cfg.YouTube, func(c configuration.OAuthClient) repository.IPlatformAdapter { return NewYouTubeAdapter(c) })

	for p := range r.adapters {
		logger.GetLogger().WithField("platform", p).Info("Platform adapter registered")
	}
	return r
}

// NewRegistryFromAdapters builds a registry from explicit adapters (tests,
// custom wiring).
func NewRegistryFromAdapters(adapters ...repository.IPlatformAdapter) *Registry {
	r := &Registry{adapters: map[model.Platform]repository.IPlatformAdapter{}}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// Get returns the adapter for p or an error when the platform is unknown or
// not configured.
func (r *Registry) Get(p model.Platform) (repository.IPlatformAdapter, error) {
	adapter, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("platform %q is not configured", p)
	}
	return adapter, nil
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []model.Platform {
	out := make([]model.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
