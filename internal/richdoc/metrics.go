package richdoc

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счетчики сервиса редактора.
type Metrics struct {
	Commands *prometheus.CounterVec
	Uploads  *prometheus.CounterVec
	Sessions prometheus.Gauge
	Formats  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "richdoc",
			Name:      "commands_total",
			Help:      "Executed editor commands",
		}, []string{"command", "result"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "richdoc",
			Name:      "uploads_total",
			Help:      "Inserted files by kind and result",
		}, []string{"kind", "result"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "richdoc",
			Name:      "sessions",
			Help:      "Open editor sessions",
		}),
		Formats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "richdoc",
			Name:      "formats_total",
			Help:      "Markup view formatting runs",
		}, []string{"result"}),
	}
}

// Register регистрирует счетчики в reg. Повторная регистрация тех же счетчиков не ошибка.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Commands, m.Uploads, m.Sessions, m.Formats} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "applied"
	}
	return "rejected"
}
