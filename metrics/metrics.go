// Package metrics exposes the ledger's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "payday_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	paydaysRecorded   prometheus.Counter
	currencyFallbacks *prometheus.CounterVec
	debtsPaidOff      prometheus.Counter
	billToggles       *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
)

// Init registers every metric with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		paydaysRecorded = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "paydays_recorded_total",
				Help: "Total paydays recorded",
			},
		)
		currencyFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "currency_fallback_total",
				Help: "Conversions that found no rate and returned the amount unchanged",
			},
			[]string{"from", "to"},
		)
		debtsPaidOff = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "debts_paid_off_total",
				Help: "Debts whose balance reached zero",
			},
		)
		billToggles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bill_toggles_total",
				Help: "Bill paid/unpaid toggles",
			},
			[]string{"paid"},
		)
		operationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "operation_latency_seconds",
				Help:    "Ledger operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		prometheus.MustRegister(
			paydaysRecorded,
			currencyFallbacks,
			debtsPaidOff,
			billToggles,
			operationLatency,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func IncPaydayRecorded() {
	if paydaysRecorded != nil {
		paydaysRecorded.Inc()
	}
}

// IncCurrencyFallback matches generic.FallbackObserver.
func IncCurrencyFallback(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}
	if currencyFallbacks != nil {
		currencyFallbacks.WithLabelValues(from, to).Inc()
	}
}

func IncDebtPaidOff() {
	if debtsPaidOff != nil {
		debtsPaidOff.Inc()
	}
}

func IncBillToggle(paid bool) {
	if billToggles != nil {
		billToggles.WithLabelValues(strconv.FormatBool(paid)).Inc()
	}
}

// ObserveOperation records how long an operation took and whether it failed.
func ObserveOperation(operation string, start time.Time, err error) {
	if operation == "" {
		operation = "unknown"
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if operationLatency != nil {
		operationLatency.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
	}
}
