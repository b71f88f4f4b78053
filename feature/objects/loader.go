package objects

import (
	"objstore/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new objects feature.
func NewFeature(driver storage.Driver, logger *zap.Logger, opts Options) *Feature {
	svc := NewService(driver, logger, opts)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "objects"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's protected routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// LoadPublic registers the routes served without an API key.
func (f *Feature) LoadPublic(app fiber.Router) {
	f.handler.RegisterPublicRoutes(app)
}
