package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bond service.
type Metrics struct {
	BondsIssued         *prometheus.CounterVec
	Redemptions         *prometheus.CounterVec
	RedemptionsRejected *prometheus.CounterVec
	AmountRedeemed      prometheus.Counter
	BondsDefaulted      prometheus.Counter
	OwnershipTransfers  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		BondsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bond_service_bonds_issued_total",
			Help: "Total number of bonds issued, by structure.",
		}, []string{"structure"}),
		Redemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bond_service_redemptions_total",
			Help: "Total number of successfully recorded redemptions, by structure.",
		}, []string{"structure"}),
		RedemptionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bond_service_redemptions_rejected_total",
			Help: "Total number of rejected redemption attempts, by reason.",
		}, []string{"reason"}),
		AmountRedeemed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bond_service_amount_redeemed_total",
			Help: "Cumulative redemption amount paid across all bonds, in token smallest units.",
		}),
		BondsDefaulted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bond_service_bonds_defaulted_total",
			Help: "Total number of bonds marked defaulted.",
		}),
		OwnershipTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bond_service_ownership_transfers_total",
			Help: "Total number of completed ownership transfers.",
		}),
	}
}
