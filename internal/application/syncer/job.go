package syncer

import "context"

// JobName names the periodic sync job.
const JobName = "sync-journal"

// Job runs Sync from a scheduler.
type Job struct {
	syncer *Syncer
	report func(Result, error)
}

// Job returns a scheduler job for s. report, if set, receives every outcome.
func (s *Syncer) Job(report func(Result, error)) *Job {
	return &Job{syncer: s, report: report}
}

// Name implements scheduler.Job.
func (j *Job) Name() string { return JobName }

// Run implements scheduler.Job.
func (j *Job) Run(ctx context.Context) error {
	res, err := j.syncer.Sync(ctx)
	if j.report != nil {
		j.report(res, err)
	}
	return err
}
