package outbound

import "time"

type TaskDispatcher interface {
	Submit(task func()) error
}

type Scheduler interface {
	// ScheduleAtFixedRate runs task every interval until the returned cancel is
	// called. Cancel is idempotent.
	ScheduleAtFixedRate(interval time.Duration, task func()) (cancel func())
}
