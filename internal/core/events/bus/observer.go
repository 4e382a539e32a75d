package bus

import (
	"time"

	"github.com/zeusync/handgrab/internal/core/observability/log"
)

// LogObserver logs every delivery at debug level and failed deliveries at warn.
type LogObserver struct {
	Logger log.Log
}

func (o LogObserver) OnDelivered(topic string, event Event, handlers int, err error, took time.Duration) {
	fields := []log.Field{
		log.String("topic", topic),
		log.String("type", event.Type()),
		log.String("source", event.Source()),
		log.Int("handlers", handlers),
		log.Duration("took", took),
	}
	if err != nil {
		o.Logger.Warn("event handler failed", append(fields, log.Error(err))...)
		return
	}
	o.Logger.Debug("event delivered", fields...)
}
