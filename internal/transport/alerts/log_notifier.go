package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier пишет оповещения в структурированный лог. Заглушка для сред без
// внешнего канала доставки.
type LogNotifier struct {
	l *logrus.Entry
}

func NewLogNotifier(l *logrus.Logger) *LogNotifier {
	return &LogNotifier{
		l: l.WithFields(logrus.Fields{
			"component": "alerts",
			"module":    "notifier",
		}),
	}
}

func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.l.WithFields(logrus.Fields{
		"accountID": notification.AccountID,
		"kind":      notification.Kind,
	}).Warn("account alert")
	return nil
}
