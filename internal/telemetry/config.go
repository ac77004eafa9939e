package telemetry

// Config holds OpenTelemetry tracing settings.
type Config struct {
	Enabled bool

	// ServiceName is reported as service.name on every span.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the fraction of packets traced, from 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "rme3",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// sampleRatio clamps SampleRate into [0, 1].
func (c Config) sampleRatio() float64 {
	switch {
	case c.SampleRate <= 0:
		return 0
	case c.SampleRate >= 1:
		return 1
	default:
		return c.SampleRate
	}
}
