package connector

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCConnector maintains one gRPC client connection per endpoint and
// reports an endpoint ready once its connection reaches the READY state.
// Connections are reused across reconnect attempts; Close releases them
// all.
type GRPCConnector struct {
	opts []grpc.DialOption

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewGRPCConnector creates a gRPC connector. With no options, plaintext
// credentials are used.
func NewGRPCConnector(opts ...grpc.DialOption) *GRPCConnector {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &GRPCConnector{
		opts:  opts,
		conns: make(map[string]*grpc.ClientConn),
	}
}

// Connect is the Connector[string] for this pool of connections
func (g *GRPCConnector) Connect(ctx context.Context, endpoint string) error {
	conn, err := g.conn(endpoint)
	if err != nil {
		return err
	}

	conn.Connect()

	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return fmt.Errorf("connection to %s entered transient failure", endpoint)
		case connectivity.Shutdown:
			return fmt.Errorf("connection to %s is shut down", endpoint)
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connect to %s cancelled: %w", endpoint, ctx.Err())
		}
	}
}

// Conn returns the client connection for an endpoint, for callers that
// want to issue RPCs on the connection the balancer validated
func (g *GRPCConnector) Conn(endpoint string) (*grpc.ClientConn, error) {
	return g.conn(endpoint)
}

// Close releases every connection held by the connector
func (g *GRPCConnector) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var firstErr error
	for endpoint, conn := range g.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.conns, endpoint)
	}
	return firstErr
}

// Release closes and forgets the connection for one endpoint, typically
// after a REMOVE membership event
func (g *GRPCConnector) Release(endpoint string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conn, ok := g.conns[endpoint]; ok {
		_ = conn.Close()
		delete(g.conns, endpoint)
	}
}

// conn returns the cached connection for an endpoint, creating it on first
// use
func (g *GRPCConnector) conn(endpoint string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conn, ok := g.conns[endpoint]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(endpoint, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", endpoint, err)
	}
	g.conns[endpoint] = conn
	return conn, nil
}
