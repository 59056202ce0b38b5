package syncano

import (
	"github.com/syncano/syncano.go/internal/validation"
	"github.com/syncano/syncano.go/pkg/connection"
)

// ValidationError is returned when a request fails local validation.
// It matches constants.ErrInvalidArgument.
type ValidationError = validation.Error

// ServiceError is returned when Syncano reports a failure.
// It matches constants.ErrService.
type ServiceError = connection.ServiceError
