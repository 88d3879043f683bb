// Package influxdb records automation metrics in InfluxDB v2.
//
// Every completed or dropped action run becomes a point in the action_runs
// measurement, and module reachability changes go to module_health, so run
// rates, failure counts and latencies can be graphed per action.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	client.WriteActionRun(influxdb.ActionRun{ActionID: "act-1", Outcome: influxdb.OutcomeCompleted})
//
// Writes are batched per influxdb.batch_size and influxdb.flush_interval and
// never block the caller.
package influxdb
