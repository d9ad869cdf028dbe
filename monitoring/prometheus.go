package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/blockworker/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HeartbeatResult string

var (
	HeartbeatSucceeded HeartbeatResult = "success"
	HeartbeatFailed    HeartbeatResult = "failure"
)

type workerPromMetrics struct {
	workerUpUnixSeconds prometheus.Gauge
	heartbeatCount      *prometheus.CounterVec
	heartbeatLatency    prometheus.Histogram
	mergeBackCount      prometheus.Counter
	registerCount       *prometheus.CounterVec
	pendingDeltas       *prometheus.GaugeVec
	reportedDeltas      *prometheus.CounterVec
	blockEventCount     *prometheus.CounterVec
	storageCapacity     *prometheus.GaugeVec
	storageUsed         *prometheus.GaugeVec
	lostStorageCount    prometheus.Counter
	panicCount          prometheus.Counter
}

func newWorkerPromMetrics() *workerPromMetrics {
	return &workerPromMetrics{
		workerUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockworker_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the worker start",
			},
		),
		heartbeatCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockworker_heartbeat_count",
				Help: "The total number of block heartbeats sent to the master",
			},
			[]string{"result"},
		),
		heartbeatLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "blockworker_heartbeat_latency",
				Help: "Latency in second of a block heartbeat round trip",
			},
		),
		mergeBackCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockworker_merge_back_count",
				Help: "The total number of undelivered reports merged back into the reporter",
			},
		),
		registerCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockworker_register_count",
				Help: "The total number of worker registrations",
			},
			[]string{"result"},
		),
		pendingDeltas: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "blockworker_pending_deltas",
				Help: "Deltas accumulated in the current heartbeat period",
			},
			[]string{"kind"},
		),
		reportedDeltas: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockworker_reported_deltas_count",
				Help: "Deltas delivered to the master",
			},
			[]string{"kind"},
		),
		blockEventCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockworker_block_event_count",
				Help: "The total number of block store mutation events",
			},
			[]string{"event"},
		),
		storageCapacity: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "blockworker_storage_capacity_bytes",
				Help: "Capacity of the filesystem holding a storage directory",
			},
			[]string{"tier", "dir"},
		),
		storageUsed: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "blockworker_storage_used_bytes",
				Help: "Used bytes of the filesystem holding a storage directory",
			},
			[]string{"tier", "dir"},
		),
		lostStorageCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockworker_lost_storage_count",
				Help: "The total number of storage directories detected as lost",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockworker_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var (
	workerMetrics *workerPromMetrics
	initOnce      sync.Once
)

// InitMetrics registers the worker metrics. Until it is called every recorder is a no-op.
func InitMetrics() {
	initOnce.Do(func() {
		workerMetrics = newWorkerPromMetrics()
		workerMetrics.workerUpUnixSeconds.SetToCurrentTime()
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func RecordHeartbeat(result HeartbeatResult, duration time.Duration) {
	if workerMetrics == nil {
		return
	}
	workerMetrics.heartbeatCount.With(prometheus.Labels{
		"result": string(result),
	}).Inc()
	workerMetrics.heartbeatLatency.Observe(duration.Seconds())
}

func IncreaseMergeBackCount() {
	if workerMetrics == nil {
		return
	}
	workerMetrics.mergeBackCount.Inc()
}

func RecordRegister(result HeartbeatResult) {
	if workerMetrics == nil {
		return
	}
	workerMetrics.registerCount.With(prometheus.Labels{
		"result": string(result),
	}).Inc()
}

func SetPendingDeltas(added, removed, lostStorage int) {
	if workerMetrics == nil {
		return
	}
	workerMetrics.pendingDeltas.With(prometheus.Labels{"kind": "added"}).Set(float64(added))
	workerMetrics.pendingDeltas.With(prometheus.Labels{"kind": "removed"}).Set(float64(removed))
	workerMetrics.pendingDeltas.With(prometheus.Labels{"kind": "lost_storage"}).Set(float64(lostStorage))
}

func RecordReportedDeltas(added, removed, lostStorage int) {
	if workerMetrics == nil {
		return
	}
	workerMetrics.reportedDeltas.With(prometheus.Labels{"kind": "added"}).Add(float64(added))
	workerMetrics.reportedDeltas.With(prometheus.Labels{"kind": "removed"}).Add(float64(removed))
	workerMetrics.reportedDeltas.With(prometheus.Labels{"kind": "lost_storage"}).Add(float64(lostStorage))
}

func RecordBlockEvent(event string) {
	if workerMetrics == nil {
		return
	}
	workerMetrics.blockEventCount.With(prometheus.Labels{
		"event": event,
	}).Inc()
}

func SetStorageUsage(tier, dir string, capacity, used uint64) {
	if workerMetrics == nil {
		return
	}
	labels := prometheus.Labels{"tier": tier, "dir": dir}
	workerMetrics.storageCapacity.With(labels).Set(float64(capacity))
	workerMetrics.storageUsed.With(labels).Set(float64(used))
}

func IncreaseLostStorageCount() {
	if workerMetrics == nil {
		return
	}
	workerMetrics.lostStorageCount.Inc()
}

func IncreasePanicCount() {
	if workerMetrics == nil {
		return
	}
	workerMetrics.panicCount.Inc()
}
