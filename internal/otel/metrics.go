package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	nodeOpsCounter      metric.Int64Counter
	engineErrorsCounter metric.Int64Counter
	dispatchOpsCounter  metric.Int64Counter
	contextDuration     metric.Float64Histogram
	sseEventsCounter    metric.Int64Counter
	sseConnectionsGauge metric.Int64ObservableGauge
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times;
// only runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		nodeOpsCounter, err = m.Int64Counter("tanmiws_node_operations_total", metric.WithDescription("Total node operations (add, move, transition, etc.)"))
		if err != nil {
			return
		}
		engineErrorsCounter, err = m.Int64Counter("tanmiws_engine_errors_total", metric.WithDescription("Engine errors by failure code"))
		if err != nil {
			return
		}
		dispatchOpsCounter, err = m.Int64Counter("tanmiws_dispatch_operations_total", metric.WithDescription("Dispatch coordinator operations"))
		if err != nil {
			return
		}
		contextDuration, err = m.Float64Histogram("tanmiws_context_assembly_seconds", metric.WithDescription("Context assembly duration in seconds"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("tanmiws_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("tanmiws_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordNodeOp records a node operation.
func RecordNodeOp(ctx context.Context, op, workspace, status string) {
	if nodeOpsCounter == nil {
		return
	}
	nodeOpsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrWorkspace.String(workspace),
		AttrStatus.String(status),
	))
}

// RecordEngineError records one engine failure by code.
func RecordEngineError(ctx context.Context, op, code string) {
	if engineErrorsCounter == nil {
		return
	}
	engineErrorsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrCode.String(code),
	))
}

// RecordDispatchOp records a dispatch coordinator operation.
func RecordDispatchOp(ctx context.Context, op, workspace string) {
	if dispatchOpsCounter == nil {
		return
	}
	dispatchOpsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrWorkspace.String(workspace),
	))
}

// RecordContextAssembly records one context assembly and its duration.
func RecordContextAssembly(ctx context.Context, workspace string, duration time.Duration) {
	if contextDuration == nil {
		return
	}
	contextDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrWorkspace.String(workspace)))
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

// WorkspaceCountFunc returns (active, archived, errored) workspace counts.
type WorkspaceCountFunc func() (active, archived, errored int64)

// InitMetricsWithWorkspaceCount creates instruments and optionally registers
// a callback for the workspace gauge. If countFn is nil, the gauge is not
// reported.
func InitMetricsWithWorkspaceCount(ctx context.Context, countFn WorkspaceCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if countFn == nil {
		return nil
	}
	m := Meter()
	gauge, err := m.Float64ObservableGauge("tanmiws_workspaces_total", metric.WithDescription("Number of workspaces by status"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		active, archived, errored := countFn()
		o.ObserveFloat64(gauge, float64(active), metric.WithAttributes(AttrStatus.String("active")))
		o.ObserveFloat64(gauge, float64(archived), metric.WithAttributes(AttrStatus.String("archived")))
		o.ObserveFloat64(gauge, float64(errored), metric.WithAttributes(AttrStatus.String("error")))
		return nil
	}, gauge)
	return err
}
