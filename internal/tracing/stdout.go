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
	"go.opentelemetry.io/otel/api/global"
	"go.opentelemetry.io/otel/exporter/trace/stdout"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setStdOutTracer is the fallback tracer: no collector to reach, so
// spans go to stdout. Used when TracingConfig.Implementation is unset
// or unrecognized.
func setStdOutTracer(sampleRate float64) (func(), error) {
	exporter, err := stdout.NewExporter(stdout.Options{PrettyPrint: true})
	if err != nil {
		return nil, err
	}

	tp, err := sdktrace.NewProvider(
		sdktrace.WithConfig(sdktrace.Config{DefaultSampler: samplerFor(sampleRate)}),
		sdktrace.WithSyncer(exporter))
	if err != nil {
		return nil, err
	}
	global.SetTraceProvider(tp)
	return func() {}, nil
}

// samplerFor maps a records-config sample rate onto an sdktrace.Sampler:
// 0 keeps nothing, 1 (or above) keeps everything, anything else is a
// probability sampler.
func samplerFor(sampleRate float64) sdktrace.Sampler {
	switch {
	case sampleRate >= 1:
		return sdktrace.AlwaysSample()
	case sampleRate <= 0:
		return sdktrace.ProbabilitySampler(0)
	default:
		return sdktrace.ProbabilitySampler(sampleRate)
	}
}
