// internal/metrics/collector.go
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pumpcurve"

// MetricType представляет тип метрики
type MetricType string

const (
	TradeCounterType       MetricType = "trade_counter"
	TradeDurationType      MetricType = "trade_duration"
	ReserveVolumeType      MetricType = "reserve_volume"
	FeeCounterType         MetricType = "fees"
	RemainingSupplyType    MetricType = "remaining_supply"
	AccumulatedReserveType MetricType = "accumulated_reserve"
	MarketsCreatedType     MetricType = "markets_created"
	MarketsExhaustedType   MetricType = "markets_exhausted"
)

// Collector владеет собственным реестром, поэтому несколько экземпляров
// (например, в тестах) не конфликтуют при регистрации.
type Collector struct {
	registry *prometheus.Registry
	metrics  sync.Map
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	all := map[MetricType]prometheus.Collector{
		TradeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades attempted, by outcome",
		}, []string{"side", "mode", "result"}),
		TradeDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_duration_seconds",
			Help:      "Time from lock acquisition to commit",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"side", "mode"}),
		ReserveVolumeType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reserve_volume_total",
			Help:      "Gross reserve moved across the curve, in reserve base units",
		}, []string{"side"}),
		FeeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_total",
			Help:      "Fees sent to the fee recipient, in reserve base units",
		}, []string{"side"}),
		RemainingSupplyType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_supply",
			Help:      "Tokens still on the curve, reserved tail included",
		}, []string{"mint"}),
		AccumulatedReserveType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accumulated_reserve",
			Help:      "Reserve escrowed by the curve",
		}, []string{"mint"}),
		MarketsCreatedType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markets_created_total",
			Help:      "Markets created and activated",
		}),
		MarketsExhaustedType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markets_exhausted_total",
			Help:      "Markets whose curve closed",
		}),
	}

	for t, m := range all {
		c.metrics.Store(t, m)
		c.registry.MustRegister(m)
	}
	return c
}

// Registry exposes the collector's registry for gathering or HTTP export.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Reset сбрасывает все векторные метрики
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

func (c *Collector) counterVec(t MetricType) *prometheus.CounterVec {
	v, _ := c.metrics.Load(t)
	cv, _ := v.(*prometheus.CounterVec)
	return cv
}

func (c *Collector) gaugeVec(t MetricType) *prometheus.GaugeVec {
	v, _ := c.metrics.Load(t)
	gv, _ := v.(*prometheus.GaugeVec)
	return gv
}

func (c *Collector) counter(t MetricType) prometheus.Counter {
	v, _ := c.metrics.Load(t)
	ct, _ := v.(prometheus.Counter)
	return ct
}

// RecordTrade records a committed trade and the market state after it.
func (c *Collector) RecordTrade(side, mode, mint string, gross, fee, remaining, accumulated uint64, d time.Duration) {
	c.counterVec(TradeCounterType).WithLabelValues(side, mode, "success").Inc()
	c.counterVec(ReserveVolumeType).WithLabelValues(side).Add(float64(gross))
	c.counterVec(FeeCounterType).WithLabelValues(side).Add(float64(fee))
	c.gaugeVec(RemainingSupplyType).WithLabelValues(mint).Set(float64(remaining))
	c.gaugeVec(AccumulatedReserveType).WithLabelValues(mint).Set(float64(accumulated))

	if v, ok := c.metrics.Load(TradeDurationType); ok {
		v.(*prometheus.HistogramVec).WithLabelValues(side, mode).Observe(d.Seconds())
	}
}

// RecordRejected counts a trade that failed. result is a short error name.
func (c *Collector) RecordRejected(side, mode, result string) {
	c.counterVec(TradeCounterType).WithLabelValues(side, mode, result).Inc()
}

// RecordMarketCreated counts a new market and seeds its gauges.
func (c *Collector) RecordMarketCreated(mint string, remaining uint64) {
	c.counter(MarketsCreatedType).Inc()
	c.gaugeVec(RemainingSupplyType).WithLabelValues(mint).Set(float64(remaining))
	c.gaugeVec(AccumulatedReserveType).WithLabelValues(mint).Set(0)
}

func (c *Collector) RecordMarketExhausted() {
	c.counter(MarketsExhaustedType).Inc()
}
