package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Shop
	CheckoutsTotal  prometheus.Counter
	OrderRevenue    prometheus.Counter
	CartOpsTotal    *prometheus.CounterVec
	MediaBytesTotal *prometheus.CounterVec

	// Jobs(worker)

	JobDuration  *prometheus.HistogramVec
	JobResults   *prometheus.CounterVec
	JobsInFlight prometheus.Gauge
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// Sane initial defaults
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),

		CheckoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "shop",
				Name:      "checkouts_total",
				Help:      "Carts turned into orders.",
			},
		),
		OrderRevenue: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "shop",
				Name:      "order_revenue_total",
				Help:      "Sum of order totals at checkout.",
			},
		),
		CartOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "shop",
				Name:      "cart_operations_total",
				Help:      "Cart mutations by op and outcome.",
			},
			[]string{"op", "result"}, // op=add|remove
		),
		MediaBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "media",
				Name:      "bytes_total",
				Help:      "Product media bytes moved by kind and direction.",
			},
			[]string{"kind", "direction"}, // direction=upload|download
		),

		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Job execution duration by type and result",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"job_type", "result"}, // result=done|retry|dead
		),
		JobResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "results_total",
				Help:      "Job outcomes by type and result.",
			},
			[]string{"job_type", "result"}, // result=done|retry|dead
		),
		JobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "in_flight",
				Help:      "Current number of executing jobs across workers(per process)",
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CheckoutsTotal, p.OrderRevenue, p.CartOpsTotal, p.MediaBytesTotal,
		p.JobDuration, p.JobResults, p.JobsInFlight,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveCheckout records one completed order.
func (p *Prom) ObserveCheckout(total float64) {
	if p == nil {
		return
	}
	p.CheckoutsTotal.Inc()
	p.OrderRevenue.Add(total)
}

func (p *Prom) ObserveCartOp(op string, err error) {
	if p == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.CartOpsTotal.WithLabelValues(op, result).Inc()
}

func (p *Prom) AddMediaBytes(kind, direction string, n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.MediaBytesTotal.WithLabelValues(kind, direction).Add(float64(n))
}

// ObserveJob records one finished job attempt. result is done, retry or dead.
func (p *Prom) ObserveJob(jobType, result string, d time.Duration) {
	if p == nil {
		return
	}
	p.JobDuration.WithLabelValues(jobType, result).Observe(d.Seconds())
	p.JobResults.WithLabelValues(jobType, result).Inc()
}

// TrackJob bumps the in-flight gauge; call the returned func when the job ends.
func (p *Prom) TrackJob() func() {
	if p == nil {
		return func() {}
	}
	p.JobsInFlight.Inc()
	return p.JobsInFlight.Dec
}
