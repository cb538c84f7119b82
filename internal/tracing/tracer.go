/**
* Copyright 2018 Comcast Cable Communications Management, LLC
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You may obtain a copy of the License at
* http://www.apache.org/licenses/LICENSE-2.0
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
 */

package tracing

import (
	"context"

	"go.opentelemetry.io/otel/api/global"
	"go.opentelemetry.io/otel/api/trace"
)

// TracerImplementation selects the exporter SetTracer installs, the Go
// shape of the `tracing.implementation` records config key.
type TracerImplementation int

const (
	StdoutTracerImplementation TracerImplementation = iota
	JaegerTracer

	// TODO RecorderTracer belongs here once a config knob exists to pick
	// it outside of tests; for now tests construct the recorder directly.
)

var (
	tracerImplementationStrings = []string{
		"stdout",
		"jaeger",
	}

	// TracerImplementations maps the records-config string to its enum,
	// the same lookup loader.go uses for other string-valued knobs.
	TracerImplementations = map[string]TracerImplementation{
		tracerImplementationStrings[StdoutTracerImplementation]: StdoutTracerImplementation,
		tracerImplementationStrings[JaegerTracer]:                JaegerTracer,
	}
)

func (t TracerImplementation) String() string {
	if t < StdoutTracerImplementation || t > JaegerTracer {
		return "unknown-tracer"
	}
	return tracerImplementationStrings[t]
}

// GlobalTracer returns the process-wide Tracer SetTracer installed.
func GlobalTracer(ctx context.Context) trace.Tracer {
	return global.TraceProvider().Tracer(tracerName)
}

// SetTracer installs the global trace provider for impl and returns a
// flush function the caller defers at shutdown. sampleRate is the
// fraction of traces to keep (TracingConfig.SampleRate);
// values <= 0 or >= 1 are treated as never/always sample.
func SetTracer(impl TracerImplementation, collectorURL string, sampleRate float64) (func(), error) {
	switch impl {
	case JaegerTracer:
		return setJaegerTracer(collectorURL, sampleRate)
	default:
		return setStdOutTracer(sampleRate)
	}
}
