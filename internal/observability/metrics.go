package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booth_scans_total",
		Help: "Total de lecturas de identificador por sensor",
	}, []string{"source"})
	ScansSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_scans_suppressed_total",
		Help: "Lecturas descartadas por cooldown",
	})
	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booth_verdicts_total",
		Help: "Veredictos del backend por resultado",
	}, []string{"result"})
	ReportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booth_report_errors_total",
		Help: "Errores al reportar un scan al backend",
	}, []string{"kind"})
	ChannelReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_channel_reconnects_total",
		Help: "Reintentos de conexión del canal de eventos",
	})
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_notifications_dropped_total",
		Help: "Notificaciones descartadas con el canal desconectado",
	})
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booth_commands_total",
		Help: "Comandos entrantes despachados por tipo",
	}, []string{"command"})
	MalformedInbound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_malformed_inbound_total",
		Help: "Mensajes entrantes del canal que no se pudieron interpretar",
	})
	CycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booth_cycle_failures_total",
		Help: "Ciclos de escaneo recuperados tras una falla inesperada",
	})
	ReportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booth_report_latency_seconds",
		Help:    "Latencia del reporte de scan al backend",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveReportLatency(start time.Time) {
	ReportLatency.Observe(time.Since(start).Seconds())
}

func StartMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	_ = http.ListenAndServe(":"+port, nil)
}
