package place

import "sync"

const defaultQueueDepth = 64

// DeviceContext runs work submitted for one place on a dedicated
// goroutine in submission order. Wait blocks until everything
// submitted before it has finished, mirroring a device stream flush.
type DeviceContext struct {
	place Place
	tasks chan func()
	done  sync.WaitGroup
}

// NewDeviceContext starts the worker goroutine for the given place.
func NewDeviceContext(p Place) *DeviceContext {
	ctx := &DeviceContext{
		place: p,
		tasks: make(chan func(), defaultQueueDepth),
	}

	ctx.done.Add(1)
	go ctx.run()

	return ctx
}

func (dc *DeviceContext) run() {
	defer dc.done.Done()

	for task := range dc.tasks {
		task()
	}
}

// Place returns the place this context serves.
func (dc *DeviceContext) Place() Place {
	return dc.place
}

// Submit enqueues a task. Tasks run one at a time in FIFO order.
// Submit must not be called after Close.
func (dc *DeviceContext) Submit(task func()) {
	dc.tasks <- task
}

// Wait blocks until all previously submitted tasks have completed.
func (dc *DeviceContext) Wait() {
	flushed := make(chan struct{})
	dc.tasks <- func() { close(flushed) }
	<-flushed
}

// Close drains the queue and stops the worker goroutine.
func (dc *DeviceContext) Close() {
	close(dc.tasks)
	dc.done.Wait()
}
