// Package observability wires OpenTelemetry tracing and metrics for the
// indexing daemon. When disabled, no-op providers are installed so
// instrumented code paths stay cheap.
package observability

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/localmind/indexd/internal/types"
)

const (
	defaultServiceName = "indexd"
	protocolHTTP       = "http/protobuf"
	protocolGRPC       = "grpc"
	serviceNameKey     = "service.name"
)

// Config holds OpenTelemetry settings resolved from the root configuration.
type Config struct {
	Enabled              bool
	ServiceName          string
	ExporterEndpoint     string
	ExporterProtocol     string
	ResourceAttributes   map[string]string
	TracesSampler        string
	TracesSamplerArg     float64
	MetricExportInterval time.Duration
}

// LoadConfig resolves observability settings from the root config and
// validates them.
func LoadConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil root configuration provided")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to parse resource attributes: %w", err)
	}

	otelCfg := &Config{
		Enabled:            cfg.OTelEnabled,
		ServiceName:        strings.TrimSpace(cfg.OTelServiceName),
		ExporterEndpoint:   strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		ExporterProtocol:   strings.TrimSpace(cfg.OTelExporterOTLPProtocol),
		ResourceAttributes: attrs,
		TracesSampler:      strings.TrimSpace(cfg.OTelTracesSampler),
		TracesSamplerArg:   cfg.OTelTracesSamplerArg,
	}

	if err := otelCfg.Validate(); err != nil {
		return nil, err
	}
	return otelCfg, nil
}

// Validate normalizes defaults and checks required settings.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("observability: config is nil")
	}

	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	c.ExporterProtocol = strings.ToLower(strings.TrimSpace(c.ExporterProtocol))
	if c.ExporterProtocol == "" {
		c.ExporterProtocol = protocolHTTP
	}
	if c.TracesSampler == "" {
		c.TracesSampler = "always_on"
	}
	if c.MetricExportInterval <= 0 {
		c.MetricExportInterval = 60 * time.Second
	}
	if c.ResourceAttributes == nil {
		c.ResourceAttributes = make(map[string]string)
	}
	if _, ok := c.ResourceAttributes[serviceNameKey]; !ok {
		c.ResourceAttributes[serviceNameKey] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}

	if c.ExporterEndpoint == "" {
		return fmt.Errorf("observability: OTLP exporter endpoint is required when OpenTelemetry is enabled")
	}

	switch c.ExporterProtocol {
	case protocolHTTP:
		parsed, err := url.Parse(c.ExporterEndpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("observability: OTLP exporter endpoint must use http or https with %s protocol", protocolHTTP)
		}
		if parsed.Host == "" {
			return fmt.Errorf("observability: OTLP exporter endpoint must include a host")
		}
	case protocolGRPC:
		if _, _, err := parseGRPCEndpoint(c.ExporterEndpoint); err != nil {
			return fmt.Errorf("observability: invalid OTLP gRPC endpoint: %w", err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", c.ExporterProtocol)
	}

	if strings.EqualFold(c.TracesSampler, "traceidratio") {
		if c.TracesSamplerArg <= 0 || c.TracesSamplerArg > 1 {
			return fmt.Errorf("observability: traces sampler argument must be between 0 and 1 for traceidratio")
		}
	}

	return nil
}

// parseResourceAttributes parses OTEL_RESOURCE_ATTRIBUTES style key=value
// pairs separated by commas.
func parseResourceAttributes(input string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid resource attribute %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("resource attribute key cannot be empty")
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// Init sets up global tracer and meter providers from the root configuration
// and returns a shutdown function that flushes both.
func Init(rootCfg *types.Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	otelCfg, err := LoadConfig(rootCfg)
	if err != nil {
		return noop, err
	}

	ctx := context.Background()

	tp, err := initTracer(ctx, otelCfg)
	if err != nil {
		return noop, err
	}

	mp, err := initMeter(ctx, otelCfg)
	if err != nil {
		_ = NewShutdownFunc(tp, nil)(ctx)
		return noop, err
	}

	return NewShutdownFunc(tp, mp), nil
}
