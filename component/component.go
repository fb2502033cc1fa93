package component

import (
	"context"

	"github.com/kbukum/crudkit/observability"
)

// Component is a part of a crudkit tool with a lifecycle, such as an HTTP
// adapter. CheckHealth must be safe to call before Start and after Stop.
type Component interface {
	observability.HealthChecker

	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Describable components add a summary, such as a base URL, to the
// registry's start log.
type Describable interface {
	Describe() string
}
