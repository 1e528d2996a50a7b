package service

import (
	"errors"

	"resume_rewards/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LedgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Economy operations by outcome (ok, rejected, error)",
		},
		[]string{"op", "outcome"},
	)
	LedgerPoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_total",
			Help: "Points moved through the ledger by transaction type",
		},
		[]string{"type", "direction"},
	)
	LeaderboardCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_lookups_total",
			Help: "Leaderboard cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(LedgerOps)
	prometheus.MustRegister(LedgerPoints)
	prometheus.MustRegister(LeaderboardCacheHits)
}

// clientErrors are expected rejections, not failures.
var clientErrors = []error{
	domain.ErrAccountNotFound,
	domain.ErrInsufficientPoints,
	domain.ErrAlreadyClaimed,
	domain.ErrAlreadyUnlocked,
	domain.ErrAlreadyFree,
	domain.ErrTemplateLocked,
	domain.ErrTemplateNotFound,
	domain.ErrInvalidCode,
	domain.ErrAlreadyReferred,
	domain.ErrSelfReferral,
	domain.ErrInvalidAmount,
	domain.ErrInvalidInput,
	domain.ErrUnknownActivity,
	domain.ErrUnknownPlatform,
	domain.ErrUnknownPeriod,
	domain.ErrNotCreditable,
	domain.ErrTransactionNotFound,
	domain.ErrNotRefundable,
	domain.ErrAlreadyRefunded,
}

// IsClientError reports whether err is a rejection the caller caused.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsClientError(err):
		return "rejected"
	default:
		return "error"
	}
}

func observe(op string, err error) {
	LedgerOps.WithLabelValues(op, outcome(err)).Inc()
}

func countPoints(tx *domain.Transaction) {
	if tx == nil {
		return
	}
	direction := "in"
	amount := tx.Amount
	if amount < 0 {
		direction = "out"
		amount = -amount
	}
	LedgerPoints.WithLabelValues(string(tx.Type), direction).Add(float64(amount))
}
