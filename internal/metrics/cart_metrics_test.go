package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCartMetrics(t *testing.T) {
	metrics := newCartMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newCartMetricsWithRegisterer should not return nil")
	}
	if metrics.operations == nil {
		t.Error("operations counter vec should not be nil")
	}
	if metrics.insufficientStock == nil {
		t.Error("insufficientStock counter should not be nil")
	}
	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
	if metrics.stockMovements == nil {
		t.Error("stockMovements counter should not be nil")
	}
	if metrics.cartItems == nil {
		t.Error("cartItems gauge should not be nil")
	}
}

func TestNewCartMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newCartMetricsWithRegisterer(reg)
	second := newCartMetricsWithRegisterer(reg)

	// Повторная регистрация не должна паниковать и должна вернуть
	// уже зарегистрированные коллекторы.
	if first.insufficientStock != second.insufficientStock {
		t.Error("expected the same counter instance on repeated registration")
	}
}

func TestRecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newCartMetricsWithRegisterer(reg)

	metrics.RecordOperation("add_item", "ok")
	metrics.RecordOperation("add_item", "ok")
	metrics.RecordOperation("add_item", "insufficient_stock")

	metric := &dto.Metric{}
	counter, err := metrics.operations.GetMetricWithLabelValues("add_item", "ok")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordInsufficientStock(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newCartMetricsWithRegisterer(reg)

	metrics.RecordInsufficientStock()
	metrics.RecordInsufficientStock()
	metrics.RecordInsufficientStock()

	metric := &dto.Metric{}
	if err := metrics.insufficientStock.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3.0 {
		t.Errorf("expected counter value 3.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordOperationDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newCartMetricsWithRegisterer(reg)

	metrics.RecordOperationDuration("add_item", 100*time.Millisecond)
	metrics.RecordOperationDuration("add_item", 500*time.Millisecond)
	metrics.RecordOperationDuration("remove_item", 25*time.Millisecond)

	observer, err := metrics.operationDuration.GetMetricWithLabelValues("add_item")
	if err != nil {
		t.Fatalf("get histogram: %v", err)
	}

	metric := &dto.Metric{}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}

	sum := metric.Histogram.GetSampleSum()
	if sum < 0.55 || sum > 0.65 {
		t.Errorf("expected sum around 0.6, got %f", sum)
	}
}

func TestRecordOutboxAndMovementEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newCartMetricsWithRegisterer(reg)

	metrics.RecordOutboxEvent()
	metrics.RecordOutboxEvent()
	metrics.RecordStockMovement()

	outboxMetric := &dto.Metric{}
	if err := metrics.outboxEvents.Write(outboxMetric); err != nil {
		t.Fatalf("failed to write outbox metric: %v", err)
	}
	if outboxMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected outbox counter 2.0, got %f", outboxMetric.Counter.GetValue())
	}

	movementMetric := &dto.Metric{}
	if err := metrics.stockMovements.Write(movementMetric); err != nil {
		t.Fatalf("failed to write movement metric: %v", err)
	}
	if movementMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected movement counter 1.0, got %f", movementMetric.Counter.GetValue())
	}
}

func TestSetCartItems(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newCartMetricsWithRegisterer(reg)

	metrics.SetCartItems(4)
	metrics.SetCartItems(2)

	gaugeMetric := &dto.Metric{}
	if err := metrics.cartItems.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 2.0 {
		t.Errorf("expected gauge value 2.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}
