package httpclient

import (
	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/observability"
	"github.com/kbukum/crudkit/provider"
)

// compile-time assertions
var _ provider.RequestResponse[crud.Request, crud.Response] = (*Adapter)(nil)
var _ provider.Closeable = (*Adapter)(nil)
var _ crud.Transport = (*Adapter)(nil)
var _ observability.HealthChecker = (*Adapter)(nil)
