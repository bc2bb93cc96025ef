package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики операций над корзиной и каталогом.
type CartMetrics struct {
	// Счётчики операций с меткой результата
	operations *prometheus.CounterVec

	// Отказы резервирования из-за нехватки остатка
	insufficientStock prometheus.Counter

	// Гистограммы времени выполнения операций
	operationDuration *prometheus.HistogramVec

	// Счётчики сопутствующих записей
	outboxEvents   prometheus.Counter
	stockMovements prometheus.Counter

	// Gauge текущего числа позиций в корзине
	cartItems prometheus.Gauge
}

// NewCartMetrics создаёт новый экземпляр метрик корзины.
func NewCartMetrics() *CartMetrics {
	return newCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Total number of cart and catalog operations by result",
		}, []string{"operation", "result"}),
		insufficientStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_insufficient_stock_total",
			Help: "Total number of reservations rejected due to insufficient stock",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "cart_operation_duration_seconds",
			Help:    "Duration of cart and catalog operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_outbox_events_total",
			Help: "Total number of events enqueued to the transactional outbox",
		}),
		stockMovements: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_stock_movements_total",
			Help: "Total number of stock movement records written",
		}),
		cartItems: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cart_items",
			Help: "Number of items currently in the cart",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOperation фиксирует исход операции.
func (m *CartMetrics) RecordOperation(operation, result string) {
	m.operations.WithLabelValues(operation, result).Inc()
}

// RecordInsufficientStock увеличивает счётчик отказов по остатку.
func (m *CartMetrics) RecordInsufficientStock() {
	m.insufficientStock.Inc()
}

// RecordOperationDuration записывает время выполнения операции.
func (m *CartMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CartMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordStockMovement увеличивает счётчик движений остатка.
func (m *CartMetrics) RecordStockMovement() {
	m.stockMovements.Inc()
}

// SetCartItems выставляет текущее число позиций корзины.
func (m *CartMetrics) SetCartItems(count int) {
	m.cartItems.Set(float64(count))
}
