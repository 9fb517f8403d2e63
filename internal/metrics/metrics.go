package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts account registrations by referral usage
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_registrations_total",
			Help: "Total number of account registrations",
		},
		[]string{"referred"},
	)

	// TaskClaimsTotal counts task claims by slot and outcome
	TaskClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_task_claims_total",
			Help: "Total number of task claim attempts",
		},
		[]string{"task", "outcome"},
	)

	// SpinsTotal counts wheel draws by prize
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_spins_total",
			Help: "Total number of wheel draws",
		},
		[]string{"prize"},
	)

	// RewardsCredited tracks reward amounts credited by entry type
	RewardsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_rewards_credited_total",
			Help: "Total reward units credited by ledger entry type",
		},
		[]string{"type"},
	)

	// CommissionsTotal counts commission credits by chain level
	CommissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_commissions_total",
			Help: "Total number of referral commission credits",
		},
		[]string{"level", "status"},
	)

	// CommissionQueueDepth tracks the pending cascade queue size
	CommissionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "economy_commission_queue_depth",
			Help: "Number of reward events waiting for commission fan-out",
		},
	)

	// BansTotal counts bans by reason and actor
	BansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_bans_total",
			Help: "Total number of account bans",
		},
		[]string{"reason", "banned_by"},
	)

	// AttestationsTotal counts attestation gate decisions
	AttestationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_attestations_total",
			Help: "Total number of attestation gate decisions",
		},
		[]string{"decision"},
	)

	// WithdrawalsTotal counts withdrawal requests by method and status
	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_withdrawals_total",
			Help: "Total number of withdrawal requests",
		},
		[]string{"method", "status"},
	)

	// WithdrawalAmount tracks requested withdrawal amounts
	WithdrawalAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "economy_withdrawal_amount",
			Help:    "Requested withdrawal amounts in reward units",
			Buckets: []float64{500, 1000, 2500, 5000, 10000, 25000, 50000},
		},
		[]string{"method"},
	)

	// LedgerImbalancedAccounts tracks accounts violating the ledger invariant
	LedgerImbalancedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "economy_ledger_imbalanced_accounts",
			Help: "Number of accounts whose balance diverges from their ledger sum",
		},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
