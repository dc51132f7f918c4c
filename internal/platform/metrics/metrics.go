// Package metrics は Prometheus のレジストリと HTTP/貸出の計測をまとめる。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	loansCreated prometheus.Counter
	loansReturn  prometheus.Counter
	unitsOut     prometheus.Counter
	unitsBack    prometheus.Counter
	rejected     *prometheus.CounterVec
	stockOuts    prometheus.Counter
	unitsUsed    prometheus.Counter
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "toolcrib",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "loans_created_total", Help: "Loans committed.",
		}),
		loansReturn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "loans_returned_total", Help: "Loans returned.",
		}),
		unitsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "units_checked_out_total", Help: "Tool units reserved by loans.",
		}),
		unitsBack: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "units_returned_total", Help: "Tool units released by returns.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "loan_rejections_total", Help: "Loan operations rejected, by error code.",
		}, []string{"op", "code"}),
		stockOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "stock_outs_total", Help: "Consumable stock-outs committed.",
		}),
		unitsUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolcrib", Name: "consumable_units_withdrawn_total", Help: "Consumable units debited by stock-outs.",
		}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpDuration, r.loansCreated, r.loansReturn, r.unitsOut, r.unitsBack, r.rejected,
		r.stockOuts, r.unitsUsed,
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Middleware はルートテンプレート単位でレイテンシを記録する。
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (r *Registry) LoanCreated(qty int) {
	r.loansCreated.Inc()
	r.unitsOut.Add(float64(qty))
}

func (r *Registry) LoanReturned(qty int) {
	r.loansReturn.Inc()
	r.unitsBack.Add(float64(qty))
}

func (r *Registry) LoanRejected(op, code string) {
	r.rejected.WithLabelValues(op, code).Inc()
}

func (r *Registry) StockOut(qty int) {
	r.stockOuts.Inc()
	r.unitsUsed.Add(float64(qty))
}
