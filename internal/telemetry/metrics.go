package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/orgkeys"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Provisioning metrics
	ProvisionTotal        metric.Int64Counter
	ProvisionDuration     metric.Float64Histogram
	ProvisionStepFailures metric.Int64Counter
	CompensationsTotal    metric.Int64Counter

	// Credential metrics
	KeysIssuedTotal       metric.Int64Counter
	KeysDeletedTotal      metric.Int64Counter
	KeyVerificationsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Provisioning metrics
	m.ProvisionTotal, _ = meter.Int64Counter(
		"orgkeys.provision.total",
		metric.WithDescription("Total number of provisioning attempts by outcome"),
		metric.WithUnit("{request}"),
	)

	m.ProvisionDuration, _ = meter.Float64Histogram(
		"orgkeys.provision.duration",
		metric.WithDescription("Duration of provisioning including any cleanup"),
		metric.WithUnit("ms"),
	)

	m.ProvisionStepFailures, _ = meter.Int64Counter(
		"orgkeys.provision.step_failures.total",
		metric.WithDescription("Total number of provisioning step failures by step"),
		metric.WithUnit("{failure}"),
	)

	m.CompensationsTotal, _ = meter.Int64Counter(
		"orgkeys.provision.compensations.total",
		metric.WithDescription("Total number of cleanup actions run by step and result"),
		metric.WithUnit("{action}"),
	)

	// Credential metrics
	m.KeysIssuedTotal, _ = meter.Int64Counter(
		"orgkeys.keys.issued.total",
		metric.WithDescription("Total number of API keys issued by kind"),
		metric.WithUnit("{key}"),
	)

	m.KeysDeletedTotal, _ = meter.Int64Counter(
		"orgkeys.keys.deleted.total",
		metric.WithDescription("Total number of API keys deleted by kind"),
		metric.WithUnit("{key}"),
	)

	m.KeyVerificationsTotal, _ = meter.Int64Counter(
		"orgkeys.keys.verifications.total",
		metric.WithDescription("Total number of API key verifications by kind and result"),
		metric.WithUnit("{verification}"),
	)

	return m
}
