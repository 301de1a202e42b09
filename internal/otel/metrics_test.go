package otel

import (
	"context"
	"testing"
	"time"
)

func TestInitMetrics_RecordNodeOp(t *testing.T) {
	ctx := context.Background()
	_, err := InitMeterProvider(ctx, "metrics-test")
	if err != nil {
		t.Fatalf("InitMeterProvider: %v", err)
	}
	if err := InitMetrics(ctx); err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
	RecordNodeOp(ctx, "node_add", "ws1", "pending")
	RecordNodeOp(ctx, "node_transition", "ws1", "implementing")
	RecordEngineError(ctx, "node_transition", "invalid_transition")
}

func TestAddSSEConnection_RemoveSSEConnection(t *testing.T) {
	AddSSEConnection()
	AddSSEConnection()
	RemoveSSEConnection()
	RemoveSSEConnection()
	RemoveSSEConnection() // should not go negative
}

func TestRecordDispatchAndContext(t *testing.T) {
	ctx := context.Background()
	_, _ = InitMeterProvider(ctx, "record-test")
	_ = InitMetrics(ctx)
	RecordDispatchOp(ctx, "dispatch_enable", "ws1")
	RecordContextAssembly(ctx, "ws1", 5*time.Millisecond)
	RecordSSEEvent(ctx)
}

func TestInitMetricsWithWorkspaceCount(t *testing.T) {
	ctx := context.Background()
	_, _ = InitMeterProvider(ctx, "wscount-test")
	err := InitMetricsWithWorkspaceCount(ctx, func() (active, archived, errored int64) {
		return 2, 1, 0
	})
	if err != nil {
		t.Fatalf("InitMetricsWithWorkspaceCount: %v", err)
	}
}

func TestInitMetricsWithWorkspaceCount_nilFunc(t *testing.T) {
	ctx := context.Background()
	_, _ = InitMeterProvider(ctx, "wscount-nil-test")
	if err := InitMetricsWithWorkspaceCount(ctx, nil); err != nil {
		t.Fatalf("InitMetricsWithWorkspaceCount(nil): %v", err)
	}
}
