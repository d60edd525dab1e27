package tasks

// TaskSchedulerInterface is what the main application and handlers see of
// the background scheduler: lifecycle, manual enqueueing, and the channel
// that carries run-aborting failures out to the top-level loop.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Fatal() <-chan error
}
