// Package scheduler runs configured backup jobs on their intervals.
//
// A [Coordinator] keeps one cron entry per job, keyed by the job's key:
//
//	coord := scheduler.New(engine, settings, logging.NewEventLog(logger),
//	    scheduler.WithLogger(logger))
//	if err := coord.Start(ctx); err != nil {
//	    return err
//	}
//	<-ctx.Done()
//	coord.Stop()
//
// # Reconciliation
//
// [Coordinator.Reconcile] brings the entries in line with a job list. New
// jobs are scheduled, removed jobs are unscheduled, and a job whose
// interval changed keeps the time already elapsed in its current period.
// Reconcile is idempotent.
//
// When the job source reports a change, [Coordinator.ConfigChanged] waits
// for the debounce window to pass quietly and then reloads, so an editor
// that saves a file in several steps causes one reload.
//
// # Runs
//
// Each run writes <destination>/<name>-<yyyyMMdd-HHmmss>, plus .zip for
// archive jobs. A run that is still going when its next period ends
// causes that period to be skipped. A failed run removes its partial
// artifact and is reported as an error event; other jobs are unaffected.
package scheduler
