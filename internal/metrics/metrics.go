package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// ContractCallsTotal counts contract handle operations by operation and status
	ContractCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_contract_calls_total",
			Help: "Total number of contract operations",
		},
		[]string{"operation", "status"},
	)

	// ContractCallDuration tracks contract operation latency
	ContractCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_contract_call_duration_seconds",
			Help:    "Contract operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// GasUsed tracks gas used by transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_gas_used",
			Help:    "Gas used by transactions",
			Buckets: []float64{10000, 50000, 100000, 200000, 400000, 1000000, 4000000},
		},
		[]string{"operation"},
	)

	// ScenarioStepsTotal counts scenario steps by step and status
	ScenarioStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_scenario_steps_total",
			Help: "Total number of scenario steps executed",
		},
		[]string{"step", "status"},
	)

	// TokenBalance tracks the last observed wallet balance
	TokenBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harness_token_balance",
			Help: "Last observed token balance by symbol",
		},
		[]string{"token"},
	)

	// RPCRequestsTotal counts gateway JSON-RPC requests by method and status
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devchain_rpc_requests_total",
			Help: "Total number of JSON-RPC requests served",
		},
		[]string{"method", "status"},
	)

	// BlockHeight tracks the simulated chain height
	BlockHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devchain_block_height",
			Help: "Current simulated block height",
		},
	)
)

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
