package observability

import (
	"time"

	"resumeforge/internal/config"
)

// Settings is the resolved observability setup for one process.
type Settings struct {
	ServiceName        string
	ServiceVersion     string
	ServiceInstance    string
	Enabled            bool
	TracingEnabled     bool
	ConsoleOutput      bool
	PrettyPrint        bool
	SampleRate         float64
	CollectionInterval time.Duration
	Prometheus         PrometheusSettings
	OTLP               config.OTLPConfig
	CustomMetrics      config.CustomMetricsConfig
}

// SettingsFromConfig resolves settings from cfg. A nil cfg yields a disabled
// setup.
func SettingsFromConfig(cfg *config.Config, version string) Settings {
	if cfg == nil {
		return Settings{ServiceName: "resumeforge", ServiceVersion: version}
	}

	obs := cfg.Observability
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	sampleRate := obs.Tracing.SampleRate
	if sampleRate <= 0 {
		sampleRate = obs.SampleRate
	}
	interval := obs.Metrics.CollectionInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	instance := obs.ServiceInstance
	if instance == "" {
		instance = obs.ServiceName + "-1"
	}

	return Settings{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    instance,
		Enabled:            obs.Enabled,
		TracingEnabled:     obs.Tracing.Enabled,
		ConsoleOutput:      obs.ConsoleOutput || obs.Console.Enabled,
		PrettyPrint:        obs.Console.PrettyPrint,
		SampleRate:         sampleRate,
		CollectionInterval: interval,
		Prometheus: PrometheusSettings{
			Enabled:  obs.Prometheus.Enabled && obs.Metrics.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
		OTLP:          obs.OTLP,
		CustomMetrics: obs.CustomMetrics,
	}
}
