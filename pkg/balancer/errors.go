package balancer

import "errors"

var (
	// ErrNoEndpoints is returned by Choose when no endpoint is active
	ErrNoEndpoints = errors.New("no endpoints available")

	// ErrShutDown is returned by operations invoked after Shutdown
	ErrShutDown = errors.New("balancer is shut down")
)
