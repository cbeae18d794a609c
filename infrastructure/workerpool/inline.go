package workerpool

// InlineDispatcher runs every task on the submitting goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Submit(task func()) error {
	task()
	return nil
}
