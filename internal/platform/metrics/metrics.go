package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RegistrationsCreated   prometheus.Counter
	RegistrationsCancelled prometheus.Counter
	QRSessionsIssued       prometheus.Counter
	AttendanceMarked       *prometheus.CounterVec
	NotificationsDropped   prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_registrations_created_total",
			Help: "Total number of event registrations created",
		}),
		RegistrationsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_registrations_cancelled_total",
			Help: "Total number of registrations removed by unregistration",
		}),
		QRSessionsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_qr_sessions_issued_total",
			Help: "Total number of attendance QR sessions generated",
		}),
		AttendanceMarked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_attendance_marked_total",
			Help: "Total number of attendance records written, by method",
		}, []string{"method"}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_notifications_dropped_total",
			Help: "Total number of best-effort notifications that failed to send",
		}),
	}
}
