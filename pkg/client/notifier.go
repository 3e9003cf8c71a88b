package client

// Notifier shows store failures to the user
type Notifier interface {
	Error(msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg string)

func (f NotifierFunc) Error(msg string) { f(msg) }

type nopNotifier struct{}

func (nopNotifier) Error(string) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
