package mutator

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Notice is the user-visible report of a failed write.
type Notice struct {
	OrderID   string    `json:"order_id"`
	Operation string    `json:"operation"`
	Field     string    `json:"field"`
	Err       error     `json:"-"`
	At        time.Time `json:"at"`
}

func (n Notice) Message() string {
	return fmt.Sprintf("Could not save %s, the change was reverted. Please try again.", n.Operation)
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notice) {
	l.logger.WithFields(logrus.Fields{
		"order_id":  n.OrderID,
		"operation": n.Operation,
		"field":     n.Field,
	}).WithError(n.Err).Error(n.Message())
}

// Recorder keeps the most recent notices, newest last.
type Recorder struct {
	mutex   sync.Mutex
	limit   int
	notices []Notice
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 20
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(n Notice) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.notices = append(r.notices, n)
	if len(r.notices) > r.limit {
		r.notices = append([]Notice(nil), r.notices[len(r.notices)-r.limit:]...)
	}
}

func (r *Recorder) Notices() []Notice {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Fanout delivers a notice to several notifiers in order.
type Fanout []Notifier

func (f Fanout) Notify(n Notice) {
	for _, notifier := range f {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
