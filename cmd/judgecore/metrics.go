package main

import (
	"github.com/npuboj/judgecore/types"
	"github.com/npuboj/judgecore/worker"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "judgecore"
)

var (
	// 1ms -> 10s
	timeBuckets = []float64{
		0.001, 0.002, 0.005, 0.008, 0.010, 0.025, 0.050, 0.075, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}

	// 4k (1<<12) -> 4g (1<<32)
	memoryBucket = prometheus.ExponentialBuckets(1<<12, 2, 21)

	requestErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "error",
		Help:      "Number of requests returns error",
	})

	sandboxErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sandbox_error",
		Help:      "Number of executions failed by the isolation infrastructure",
	})

	outcomeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "outcome",
		Help:      "Number of outcomes by code",
	}, []string{"code"})

	verdictCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "verdict",
		Help:      "Number of verdicts",
	}, []string{"verdict"})

	execTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "time_seconds",
		Help:      "Histogram for the cpu time",
		Buckets:   timeBuckets,
	}, []string{"code"})

	execMemHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "memory_bytes",
		Help:      "Histgram for the memory",
		Buckets:   memoryBucket,
	}, []string{"code"})
)

func init() {
	prometheus.MustRegister(requestErrorCount, sandboxErrorCount)
	prometheus.MustRegister(outcomeCount, verdictCount)
	prometheus.MustRegister(execTimeHist, execMemHist)
}

func outcomeObserve(o types.Outcome) {
	code := o.Code.String()
	outcomeCount.WithLabelValues(code).Inc()
	switch o.Code {
	case types.CodeSandboxError:
		sandboxErrorCount.Inc()
	case types.CodeCompileError:
	default:
		execTimeHist.WithLabelValues(code).Observe(o.Time.Seconds())
		execMemHist.WithLabelValues(code).Observe(float64(o.Memory))
	}
}

func execObserve(res worker.Response) {
	if res.Error != nil {
		requestErrorCount.Inc()
	}
	for _, v := range res.Verdicts {
		verdictCount.WithLabelValues(v.String()).Inc()
	}
}
