package metrics

import "expvar"

var (
	RefreshRuns          = expvar.NewInt("refresh_runs")
	RefreshErrors        = expvar.NewInt("refresh_errors")
	RefreshStaleDiscards = expvar.NewInt("refresh_stale_discards")
	CommandRuns          = expvar.NewInt("command_runs")
	CommandErrors        = expvar.NewInt("command_errors")
	SnapshotSaves        = expvar.NewInt("snapshot_saves")
	SnapshotLoads        = expvar.NewInt("snapshot_loads")
)
