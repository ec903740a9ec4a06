package telemetry

import "os"

// ServiceVersionEnv overrides the version reported by every service
const ServiceVersionEnv = "SERVICE_VERSION"

var (
	BookingServiceConfig      = serviceConfig("booking-service")
	ParticipantsServiceConfig = serviceConfig("participants-service")

	// DefaultConfig names metrics recorded outside any service context
	DefaultConfig = serviceConfig("unknown-service")
)

func serviceConfig(name string) Config {
	version := os.Getenv(ServiceVersionEnv)
	if version == "" {
		version = "dev"
	}
	return Config{ServiceName: name, ServiceVersion: version}
}

// WithOTLPEndpoint returns a copy exporting to endpoint. Empty keeps Prometheus only.
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}
