// Package chain provides read-only access to on-chain DEX state.
package chain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
)

// RPCEndpoint is one Ethereum RPC endpoint with health tracking.
type RPCEndpoint struct {
	URL     string
	Client  *ethclient.Client
	healthy atomic.Bool
}

// ClientPool rotates reads across multiple RPC endpoints and skips
// endpoints that fail health checks.
type ClientPool struct {
	endpoints []*RPCEndpoint
	current   int
	mu        sync.Mutex
	logger    *observability.Logger

	healthInterval time.Duration
	stop           chan struct{}
	stopOnce       sync.Once
}

// NewClientPool dials all endpoints. Endpoints that fail to dial are kept
// and retried by the health checker; at least one must come up healthy.
func NewClientPool(urls []string, logger *observability.Logger) (*ClientPool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}

	endpoints := make([]*RPCEndpoint, 0, len(urls))
	healthyCount := 0
	for _, url := range urls {
		ep := &RPCEndpoint{URL: url}
		client, err := ethclient.Dial(url)
		if err != nil {
			logger.LogError(context.Background(), "failed to connect to RPC endpoint", err, "url", url)
		} else {
			ep.Client = client
			ep.healthy.Store(true)
			healthyCount++
			logger.Info("connected to RPC endpoint", "url", url)
		}
		endpoints = append(endpoints, ep)
	}

	if healthyCount == 0 {
		return nil, fmt.Errorf("no healthy RPC endpoints available")
	}

	pool := &ClientPool{
		endpoints:      endpoints,
		logger:         logger,
		healthInterval: 30 * time.Second,
		stop:           make(chan struct{}),
	}
	go pool.runHealthChecks()
	return pool, nil
}

// Client returns the next healthy client using round-robin selection.
func (cp *ClientPool) Client() (*ethclient.Client, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	for attempts := 0; attempts < len(cp.endpoints); attempts++ {
		ep := cp.endpoints[cp.current]
		cp.current = (cp.current + 1) % len(cp.endpoints)
		if ep.healthy.Load() && ep.Client != nil {
			return ep.Client, nil
		}
	}
	return nil, fmt.Errorf("no healthy RPC endpoints available")
}

// MarkUnhealthy takes an endpoint out of rotation until the next
// successful health check.
func (cp *ClientPool) MarkUnhealthy(url string) {
	for _, ep := range cp.endpoints {
		if ep.URL == url {
			if ep.healthy.Swap(false) {
				cp.logger.Warn("marking RPC endpoint as unhealthy", "url", url)
			}
			return
		}
	}
}

func (cp *ClientPool) runHealthChecks() {
	ticker := time.NewTicker(cp.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cp.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			for _, ep := range cp.endpoints {
				cp.checkEndpoint(ctx, ep)
			}
			cancel()
		}
	}
}

func (cp *ClientPool) checkEndpoint(ctx context.Context, ep *RPCEndpoint) {
	client := cp.endpointClient(ep)
	if client == nil {
		dialed, err := ethclient.Dial(ep.URL)
		if err != nil {
			ep.healthy.Store(false)
			return
		}
		cp.setEndpointClient(ep, dialed)
		client = dialed
		cp.logger.Info("reconnected to RPC endpoint", "url", ep.URL)
	}

	if _, err := client.BlockNumber(ctx); err != nil {
		if ctx.Err() == nil && ep.healthy.Swap(false) {
			cp.logger.Warn("RPC endpoint failed health check", "url", ep.URL, "error", err)
		}
		return
	}

	if !ep.healthy.Swap(true) {
		cp.logger.Info("RPC endpoint recovered", "url", ep.URL)
	}
}

// endpointClient reads ep.Client under the same lock Client() uses, so
// reconnects in the health checker never race round-robin selection.
func (cp *ClientPool) endpointClient(ep *RPCEndpoint) *ethclient.Client {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return ep.Client
}

func (cp *ClientPool) setEndpointClient(ep *RPCEndpoint, client *ethclient.Client) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	ep.Client = client
}

// Close stops health checking and closes all connections.
func (cp *ClientPool) Close() {
	cp.stopOnce.Do(func() { close(cp.stop) })
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for _, ep := range cp.endpoints {
		if ep.Client != nil {
			ep.Client.Close()
		}
	}
}
