package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "yieldtree"

// CycleRunsTotal 按最终状态统计的批次数
var CycleRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cycle",
	Name:      "runs_total",
	Help:      "Total daily cycle runs by terminal status.",
}, []string{"status", "trigger"})

// CycleRunConflicts 因同周期已有运行批次被拒绝的次数
var CycleRunConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cycle",
	Name:      "run_conflicts_total",
	Help:      "Total cycle invocations rejected because another run is active.",
})

// CycleRunDuration 批次耗时
var CycleRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "cycle",
	Name:      "run_duration_seconds",
	Help:      "Wall-clock duration of daily cycle runs.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
})

// CycleItemsTotal 单项处理结果
var CycleItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cycle",
	Name:      "items_total",
	Help:      "Total investments evaluated by outcome (processed, skipped, failed).",
}, []string{"outcome"})

// CycleItemRetries 单项因瞬时存储错误的重试次数
var CycleItemRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cycle",
	Name:      "item_retries_total",
	Help:      "Total item retries caused by transient store errors.",
})

// LedgerCreditedAmount 按类型累计入账金额
var LedgerCreditedAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "credited_amount_total",
	Help:      "Total amount credited to wallets by ledger kind.",
}, []string{"kind"})

// LedgerDuplicates 幂等拦截次数
var LedgerDuplicates = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "duplicates_total",
	Help:      "Total ledger writes short-circuited by the idempotency guard.",
}, []string{"kind"})

// CascadeLevelsCredited 每次上线分佣实际入账层数
var CascadeLevelsCredited = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "cascade",
	Name:      "levels_credited",
	Help:      "Number of upline levels credited per profit event.",
	Buckets:   prometheus.LinearBuckets(0, 1, 11),
})

// CascadeStops 分佣终止原因
var CascadeStops = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cascade",
	Name:      "stops_total",
	Help:      "Total cascades by stop reason.",
}, []string{"reason"})

// ObserveRun 记录批次结束
func ObserveRun(status, trigger string, elapsed time.Duration) {
	CycleRunsTotal.WithLabelValues(status, trigger).Inc()
	CycleRunDuration.Observe(elapsed.Seconds())
}

// ObserveItem 记录单项结果
func ObserveItem(outcome string) {
	CycleItemsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCredit 记录入账金额
func ObserveCredit(kind string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	if f <= 0 {
		return
	}
	LedgerCreditedAmount.WithLabelValues(kind).Add(f)
}

// ObserveCascade 记录一次分佣
func ObserveCascade(levelsCredited int, stopReason string) {
	CascadeLevelsCredited.Observe(float64(levelsCredited))
	if stopReason != "" {
		CascadeStops.WithLabelValues(stopReason).Inc()
	}
}
