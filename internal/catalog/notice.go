package catalog

import "github.com/sirupsen/logrus"

// Notifier presents a dismissible notice to the user.
type Notifier interface {
	Notify(title, message string)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(title, message string) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

func (f NotifierFunc) Notify(title, message string) { f(title, message) }

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(title, message string) bool

func (f ConfirmerFunc) Confirm(title, message string) bool { return f(title, message) }

// logNotifier is the default Notifier; it writes notices to the log.
type logNotifier struct {
	log logrus.FieldLogger
}

func (n logNotifier) Notify(title, message string) {
	n.log.WithField("title", title).Warn(message)
}
