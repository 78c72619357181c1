package defaults

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/connectors/native/mangadex"
	"github.com/gabriel/source-connectors/internal/connectors/profile"
	"github.com/gabriel/source-connectors/internal/fetch"
)

type Options struct {
	ProfilesPath   string
	Doer           fetch.Doer
	Preferences    connectors.Preferences
	Logger         *slog.Logger
	FilterAttempts int
	FilterTimeout  time.Duration
}

// NewRegistry registers the native connectors and every enabled site profile.
// Profiles that fail to load or collide with an existing key are reported in
// the returned error; everything else stays registered.
func NewRegistry(opts Options) (*connectors.Registry, error) {
	if opts.Doer == nil {
		opts.Doer = fetch.NewClient(fetch.Options{})
	}

	registry := connectors.NewRegistry()
	if err := registry.Register(mangadex.NewConnector(mangadex.Options{
		Doer:           opts.Doer,
		Preferences:    opts.Preferences,
		Logger:         opts.Logger,
		FilterAttempts: opts.FilterAttempts,
		FilterTimeout:  opts.FilterTimeout,
	})); err != nil {
		return nil, fmt.Errorf("register mangadex: %w", err)
	}

	loaded, loadErr := profile.LoadFromDir(opts.ProfilesPath, profile.Options{
		Doer:           opts.Doer,
		Preferences:    opts.Preferences,
		Logger:         opts.Logger,
		FilterAttempts: opts.FilterAttempts,
		FilterTimeout:  opts.FilterTimeout,
	})
	for _, connector := range loaded {
		if err := registry.Register(connector); err != nil {
			if loadErr == nil {
				loadErr = fmt.Errorf("register profile %q: %w", connector.Key(), err)
			}
		}
	}

	return registry, loadErr
}
