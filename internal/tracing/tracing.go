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

// Package tracing wires the distributed-tracing spans the HTTP front end
// emits, built on go.opentelemetry.io/otel. Spans are in-process only:
// one per request, opened by the Trace middleware, with child spans such
// as QueryCache's underneath it. StartSuspensionSpan opens a span for a
// suspension-point NextAction; the transaction engine does not call it.
// Upstream fetches attach DNS timing events to the active span rather
// than propagating a trace context they have no peer for.
package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/api/global"
	"go.opentelemetry.io/otel/api/trace"

	"github.com/corehttp/txcore/internal/runtime"
	"github.com/corehttp/txcore/internal/transact"
)

// ServiceName identifies this process to whichever exporter SetTracer
// configures.
var ServiceName = fmt.Sprintf("%s/%s", runtime.ApplicationName, runtime.ApplicationVersion)

const tracerName = "txcore"

// NewChildSpan starts a span named name as a child of whatever span ctx
// already carries, or a new root span if it carries none.
func NewChildSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	tr := global.TraceProvider().Tracer(tracerName)
	return tr.Start(ctx, name)
}

// PrepareRequest starts a span for an inbound HTTP request, the entry
// point internal/routing and internal/middleware call before driving
// the transaction FSM.
func PrepareRequest(r *http.Request, name string) (*http.Request, trace.Span) {
	ctx, span := NewChildSpan(r.Context(), name)
	return r.WithContext(ctx), span
}

// StartSuspensionSpan starts a span for action if and only if it is one
// of the NextAction states that is a suspension point (the
// ones that actually perform I/O); every other action is pure decision
// logic over in-memory state and would just add span noise. Callers
// must pass the result to EndSpan rather than calling span.End directly,
// since the span returned may be nil.
func StartSuspensionSpan(ctx context.Context, action transact.NextAction) (context.Context, trace.Span) {
	if !action.SuspensionPoint() {
		return ctx, nil
	}
	return NewChildSpan(ctx, action.String())
}

// EndSpan is a nil-safe span.End, since StartSuspensionSpan returns a
// nil span for non-suspension actions.
func EndSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}
