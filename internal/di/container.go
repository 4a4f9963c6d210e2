package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmmart/api/internal/platform/config"
	"github.com/farmmart/api/internal/repositories"
	"github.com/farmmart/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Cart    services.CartService
	Orders  services.OrderService
	Catalog services.CatalogService
	System  services.SystemService
}

// Deps carries collaborators that live outside the repository registry, such as
// the PSP verifier and the event publisher. All fields are optional.
type Deps struct {
	Payments    services.PaymentVerifier
	Events      services.OrderEventPublisher
	Build       services.BuildInfo
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Deps) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(reg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, deps Deps) (Services, error) {
	var svc Services

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository:  reg.Carts(),
		Products:    reg.Products(),
		Clock:       clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      reg.Orders(),
		Products:    reg.Products(),
		Shops:       reg.Shops(),
		Payments:    deps.Payments,
		Events:      deps.Events,
		Clock:       clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:    reg.Products(),
		Shops:       reg.Shops(),
		Clock:       clock,
		IDGenerator: deps.IDGenerator,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
