package objects

import (
	"errors"

	"objstore/core/storage"

	"github.com/gofiber/fiber/v2"
)

// errRangeNotSatisfiable reports a range that starts past the end of the object.
var errRangeNotSatisfiable = errors.New("objects: range not satisfiable")

// statusFor maps a storage error to an HTTP status code.
func statusFor(err error) int {
	var be *storage.BackendError
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		return fiber.StatusNotFound
	case errors.Is(err, errRangeNotSatisfiable):
		return fiber.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, storage.ErrInvalidRange),
		errors.Is(err, storage.ErrInvalidMultipartID),
		errors.Is(err, storage.ErrInvalidMultipartChunk):
		return fiber.StatusBadRequest
	case errors.Is(err, storage.ErrUnsupportedOperation):
		return fiber.StatusNotImplemented
	case errors.Is(err, storage.ErrInvalidBuffer), errors.As(err, &be):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
