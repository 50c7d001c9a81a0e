package managers

import (
	"sync"
)

// NotificationKind represents kind of notification.
type NotificationKind int

const (
	SuccessNotification NotificationKind = iota
	FailureNotification
)

func (k NotificationKind) String() string {
	switch k {
	case SuccessNotification:
		return "success"
	case FailureNotification:
		return "failure"
	default:
		return "unknown"
	}
}

// Notification represents terminal result of user action.
type Notification struct {
	Kind    NotificationKind
	Message string
}

// Notifier shows notifications to user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc represents function that implements Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// NotificationLog collects notifications in memory.
type NotificationLog struct {
	mutex         sync.Mutex
	notifications []Notification
}

func (l *NotificationLog) Notify(n Notification) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notifications = append(l.notifications, n)
}

// All returns collected notifications.
func (l *NotificationLog) All() []Notification {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]Notification(nil), l.notifications...)
}

// Last returns last notification.
func (l *NotificationLog) Last() (Notification, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if len(l.notifications) == 0 {
		return Notification{}, false
	}
	return l.notifications[len(l.notifications)-1], true
}

// Reset forgets collected notifications.
func (l *NotificationLog) Reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notifications = nil
}
