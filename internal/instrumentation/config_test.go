package instrumentation

import "testing"

func TestDefaultConfig_FromEnvironment(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("METRICS_EXPORTER", "")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "not-a-number")

	c := DefaultConfig()
	if c.ServiceName != "inboxassist" {
		t.Errorf("ServiceName = %q", c.ServiceName)
	}
	if c.MetricsExporter != ExporterPrometheus {
		t.Errorf("MetricsExporter = %q", c.MetricsExporter)
	}
	if !c.Audit.IncludePII {
		t.Error("expected IncludePII from environment")
	}
	if c.TraceSamplingRate != 0.1 {
		t.Errorf("TraceSamplingRate = %v, want fallback 0.1", c.TraceSamplingRate)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone}, false},
		{"empty exporters", Config{}, false},
		{"sampling too high", Config{TraceSamplingRate: 1.5}, true},
		{"sampling negative", Config{TraceSamplingRate: -0.1}, true},
		{"bad metrics exporter", Config{MetricsExporter: "statsd"}, true},
		{"bad tracing exporter", Config{TracingExporter: "jaeger"}, true},
		{"otlp without endpoint", Config{TracingExporter: ExporterOTLP}, true},
		{"otlp with endpoint", Config{MetricsExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
