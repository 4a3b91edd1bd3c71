// Package backend is the sample plugin that serves a weather forecast.
//
// Install registers its Activity. ConfigureContext registers the forecast
// store, opened lazily from the store.Config found in the collaborator
// registry. Configure migrates and seeds the store and maps
// GET /weatherforecast when the host is an HTTP host.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/host"
	"github.com/marmos91/plughost/pkg/module"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/samples/backend/store"
)

const (
	// Identity is the backend plugin's identity.
	Identity = "306b92e3-2db6-45fb-99ee-9c63b090f3fc"

	// ModuleName is the name the plugin is declared under.
	ModuleName = "plughost.sample.backend"

	// ForecastDays is the number of days seeded and served.
	ForecastDays = 5
)

// Module describes the backend sample.
var Module = &module.Module{
	Name:  ModuleName,
	Types: []*module.TypeDescriptor{module.Describe(Identity, New)},
}

func init() {
	module.Register(Module)
}

// Activity is the backend's unit of work, exposed to other plugins.
type Activity struct {
	runs atomic.Int64
}

// Execute runs the activity once.
func (a *Activity) Execute(ctx context.Context) error {
	a.runs.Add(1)
	logger.DebugCtx(ctx, "Executing backend activity")
	return nil
}

// Runs returns how many times Execute ran.
func (a *Activity) Runs() int64 { return a.runs.Load() }

// Plugin is the backend sample plugin.
type Plugin struct {
	plugin.Base

	mu    sync.Mutex
	store *store.Store
}

// New creates the backend plugin.
func New() *Plugin {
	return &Plugin{Base: plugin.NewBase(plugin.Metadata{
		Description: "Weather forecast backend backed by a SQL store",
		Version:     "1.0.0",
		Author:      "plughost",
		URL:         "https://github.com/marmos91/plughost",
	})}
}

func (p *Plugin) Install(services container.Registrar) error {
	return container.AddSingleton(services, &Activity{})
}

// ConfigureContext registers the forecast store. The store is opened on
// first resolution; a store.Config registered by the host overrides the
// defaults.
func (p *Plugin) ConfigureContext(_ context.Context, services container.Registrar) error {
	return container.AddSingletonFunc(services, func(r container.Resolver) (*store.Store, error) {
		cfg, _ := container.TryResolve[store.Config](r)
		st, err := store.Open(cfg)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.store = st
		p.mu.Unlock()
		return st, nil
	})
}

// Configure maps /weatherforecast on an HTTP host. A nil host or one that
// does not serve HTTP leaves the plugin idle.
func (p *Plugin) Configure(ctx context.Context, r container.Resolver, h any) error {
	if h == nil {
		return nil
	}
	web, ok := h.(host.Host)
	if !ok {
		logger.DebugCtx(ctx, "Host does not serve HTTP, forecast route not mapped")
		return nil
	}

	if activity, ok := container.TryResolve[*Activity](r); ok {
		if err := activity.Execute(ctx); err != nil {
			return err
		}
	}

	st, err := container.Resolve[*store.Store](r)
	if err != nil {
		return err
	}
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	if err := st.Seed(ctx, time.Now(), ForecastDays); err != nil {
		return err
	}

	web.Router().Get("/weatherforecast", forecastHandler(st))
	logger.InfoCtx(ctx, "Forecast route mapped", logger.Path("/weatherforecast"))
	return nil
}

// Close closes the store if it was opened.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}

// WeatherForecast is one entry of the /weatherforecast response.
type WeatherForecast struct {
	Date         string `json:"date"`
	TemperatureC int    `json:"temperatureC"`
	TemperatureF int    `json:"temperatureF"`
	Summary      string `json:"summary"`
}

func forecastHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forecasts, err := st.Forecasts(r.Context(), ForecastDays)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.ErrorCtx(r.Context(), "Failed to load forecasts", logger.Err(err))
			http.Error(w, "failed to load forecasts", http.StatusInternalServerError)
			return
		}

		out := make([]WeatherForecast, 0, len(forecasts))
		for _, f := range forecasts {
			out = append(out, WeatherForecast{
				Date:         f.Date.Format(time.DateOnly),
				TemperatureC: f.TemperatureC,
				TemperatureF: f.TemperatureF(),
				Summary:      f.Summary,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
