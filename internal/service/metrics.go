package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_events_created_total",
		Help: "Notification events persisted, by channel kind.",
	}, []string{"kind"})

	eventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_events_rejected_total",
		Help: "Requests rejected by the notification event service, by operation and code.",
	}, []string{"method", "code"})

	liveDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_live_dispatch_total",
		Help: "Live dispatch attempts, by channel kind and result.",
	}, []string{"kind", "result"})

	eventsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_events_requeued_total",
		Help: "Notification events reset to pending by resend.",
	})
)
