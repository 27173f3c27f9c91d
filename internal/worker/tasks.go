package worker

// Task type constants
const (
	// TaskGenerateArticle is the one-shot autonomous generation trigger.
	// It re-arms itself after each run instead of recurring on a timer.
	TaskGenerateArticle = "article:generate"

	// TaskProcessDrip drains due comment-plan entries. Hourly.
	TaskProcessDrip = "drip:process"

	// TaskRunDueJobs polls the job store for due scheduled jobs. Every
	// fifteen minutes.
	TaskRunDueJobs = "jobs:run-due"
)

// Per-run bounds for the polling tasks.
const (
	dripMaxPerRun  = 3
	dueJobsPerPoll = 10
)
