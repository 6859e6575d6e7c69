package tasks

// TaskSchedulerInterface is the part of the scheduler main and the API use.
//
//	scheduler := NewScheduler(catalog, store, options)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshCatalogTask("manual", catalog))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
