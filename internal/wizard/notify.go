package wizard

// Notifier receives user-facing error messages. Calls must not block.
type Notifier interface {
	NotifyError(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// NotifyError calls fn.
func (fn NotifierFunc) NotifyError(message string) {
	fn(message)
}

type nopNotifier struct{}

func (nopNotifier) NotifyError(string) {}
