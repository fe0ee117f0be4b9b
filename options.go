package graphgate

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tessera-labs/graphgate/config"
	"github.com/tessera-labs/graphgate/graph"
	"github.com/tessera-labs/graphgate/rbac"
)

// Option configures the Gateway.
type Option func(*gatewayConfig)

// gatewayConfig holds configuration for the Gateway instance.
type gatewayConfig struct {
	configPath string
	config     *config.Config
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	store      graph.Store
	policy     rbac.Policy
	cacheTTL   time.Duration
}

// WithConfig sets the configuration file path for the gateway.
// The path may point at a graphgate.yaml file or a directory containing
// one. Settings loaded from the file are overridden by explicit options.
func WithConfig(path string) Option {
	return func(c *gatewayConfig) {
		c.configPath = path
	}
}

// WithConfigStruct sets a fully constructed configuration, bypassing
// file loading. Mutually exclusive with WithConfig; when both are set
// the struct wins.
func WithConfigStruct(cfg *config.Config) Option {
	return func(c *gatewayConfig) {
		c.config = cfg
	}
}

// WithLogger sets a custom logger for the gateway.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *gatewayConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for distributed tracing.
// Query execution spans are emitted through it.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *gatewayConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for gateway metrics.
// Grant, denial, and leak-detection counters are registered on it.
func WithMeter(meter metric.Meter) Option {
	return func(c *gatewayConfig) {
		c.meter = meter
	}
}

// WithGraphStore sets the multi-partition graph store backing the
// gateway. If not provided, an in-memory store is created, which is
// suitable for tests and single-process use only.
func WithGraphStore(store graph.Store) Option {
	return func(c *gatewayConfig) {
		c.store = store
	}
}

// WithAccessControl sets the access policy used for mount, create, and
// delete decisions. Pass an *rbac.AccessControl for Redis-backed RBAC.
// If not provided and no Redis URL is configured, all access is allowed.
func WithAccessControl(policy rbac.Policy) Option {
	return func(c *gatewayConfig) {
		c.policy = policy
	}
}

// WithCacheTTL sets the TTL for cached access grants when the gateway
// constructs its own access control from the configured Redis URL.
// Ignored when WithAccessControl is used.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *gatewayConfig) {
		c.cacheTTL = ttl
	}
}
