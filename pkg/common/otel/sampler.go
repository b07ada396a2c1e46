package otel

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// endpointExcluder excludes a set of endpoints from the probability sampler.
// Health and debug style routes create constant trace noise with no value.
type endpointExcluder struct {
	endpoints map[string]struct{}
	sampler   sdktrace.Sampler
}

func newEndpointExcluder(endpoints map[string]struct{}, probability float64) endpointExcluder {
	return endpointExcluder{
		endpoints: endpoints,
		sampler:   sdktrace.TraceIDRatioBased(probability),
	}
}

// ShouldSample implements the sampler interface. It checks if the specified
// endpoint should be excluded from sampling.
func (ee endpointExcluder) ShouldSample(parameters sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, attr := range parameters.Attributes {
		if attr.Key == "http.target" {
			if _, exists := ee.endpoints[attr.Value.AsString()]; exists {
				return sdktrace.SamplingResult{Decision: sdktrace.Drop}
			}
		}
	}

	return ee.sampler.ShouldSample(parameters)
}

// Description implements the sampler interface.
func (ee endpointExcluder) Description() string {
	return fmt.Sprintf("endpointExcluder{%s}", ee.sampler.Description())
}
