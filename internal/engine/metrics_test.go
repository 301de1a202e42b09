package engine

import (
	"context"
	"testing"

	otelglobal "go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/otel"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

func sumCounter(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func histogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	var total uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					total += dp.Count
				}
			}
		}
	}
	return total
}

func TestOperationMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otelglobal.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	ctx := context.Background()
	if err := otel.InitMetrics(ctx); err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}

	e, _ := newTestEngine(t)

	res, err := e.Invoke(ctx, Request{Op: "workspace_create", Args: map[string]any{"name": "metered"}})
	if err != nil {
		t.Fatalf("workspace_create: %v", err)
	}
	ws, ok := res.(*models.Workspace)
	if !ok {
		t.Fatalf("workspace_create result: %T", res)
	}
	wsID := ws.WorkspaceID

	if _, err := e.Invoke(ctx, Request{Op: "bogus", WorkspaceID: wsID}); err == nil {
		t.Fatal("bogus op should fail")
	}

	if err := e.DispatchEnable(ctx, wsID, graph.DispatchNone, ""); err != nil {
		t.Fatalf("DispatchEnable: %v", err)
	}

	if _, err := e.Context(ctx, wsID, "", ContextOptions{}); err != nil {
		t.Fatalf("Context: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n := sumCounter(rm, "tanmiws_node_operations_total"); n < 2 {
		t.Fatalf("node operations counted: %d", n)
	}
	if n := sumCounter(rm, "tanmiws_engine_errors_total"); n < 1 {
		t.Fatalf("engine errors counted: %d", n)
	}
	if n := sumCounter(rm, "tanmiws_dispatch_operations_total"); n < 1 {
		t.Fatalf("dispatch operations counted: %d", n)
	}
	if n := histogramCount(rm, "tanmiws_context_assembly_seconds"); n < 1 {
		t.Fatalf("context assemblies recorded: %d", n)
	}
}
