package observability

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	otlpmetricgrpc "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otlpmetrichttp "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otlptracegrpc "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTraceExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := normalizeHTTPEndpoint(cfg.ExporterEndpoint, "/v1/traces")
		if err != nil {
			return nil, err
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case protocolGRPC:
		endpoint, insecure, err := parseGRPCEndpoint(cfg.ExporterEndpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter protocol %q", cfg.ExporterProtocol)
	}
}

func newMetricExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := normalizeHTTPEndpoint(cfg.ExporterEndpoint, "/v1/metrics")
		if err != nil {
			return nil, err
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(endpoint)}
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case protocolGRPC:
		endpoint, insecure, err := parseGRPCEndpoint(cfg.ExporterEndpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported metric exporter protocol %q", cfg.ExporterProtocol)
	}
}

// normalizeHTTPEndpoint appends the signal path (e.g. /v1/traces) when the
// endpoint does not already carry it. Query parameters are preserved.
func normalizeHTTPEndpoint(endpoint, suffix string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	if !strings.HasSuffix(path, suffix) {
		path += suffix
	}
	parsed.Path = path
	return parsed.String(), nil
}

// parseGRPCEndpoint extracts host:port from a gRPC endpoint that may carry a
// scheme. Plain host:port and http/grpc schemes are treated as insecure.
func parseGRPCEndpoint(raw string) (endpoint string, insecure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.Contains(raw, "://") {
		if !strings.Contains(raw, ":") {
			return "", false, fmt.Errorf("endpoint should include host:port")
		}
		return raw, true, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint must include host")
	}

	switch parsed.Scheme {
	case "http", "grpc":
		return parsed.Host, true, nil
	case "https", "grpcs":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
}
