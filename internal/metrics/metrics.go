package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values for transaction outcomes.
const (
	Commit   = "commit"
	Rollback = "rollback"
)

// Collectors for storage.Store metrics.
var (
	TransactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trail_transactions_total",
		Help: "Cumulative number of storage transactions, by outcome.",
	}, []string{"outcome"})
	VisitsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trail_visits_recorded_total",
		Help: "Cumulative number of visit events appended.",
	})
	StarTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trail_star_toggles_total",
		Help: "Cumulative number of star events appended, by action.",
	}, []string{"action"})
	SnapshotsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trail_snapshots_saved_total",
		Help: "Cumulative number of full-text page snapshots saved.",
	})
	PlacesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trail_places_created_total",
		Help: "Cumulative number of new places committed to the identity cache.",
	})
	MigrationStepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trail_migration_steps_total",
		Help: "Cumulative number of schema create or upgrade steps applied.",
	})
	RematerializeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trail_rematerialize_total",
		Help: "Cumulative number of full materialized view rebuilds.",
	})
)

// Collectors returns all trail collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		TransactionsTotal,
		VisitsRecordedTotal,
		StarTogglesTotal,
		SnapshotsSavedTotal,
		PlacesCreatedTotal,
		MigrationStepsTotal,
		RematerializeTotal,
	}
}

// Register registers all trail collectors with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
