package nntpclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/nntpkit/go-nntp/client")

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nntp_client_commands_total",
		Help: "Commands issued, by command and reply status",
	}, []string{"command", "status"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nntp_client_command_duration_seconds",
		Help:    "Time from writing a command to framing its reply",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	responseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nntp_client_response_bytes",
		Help:    "Size of framed replies",
		Buckets: prometheus.ExponentialBuckets(64, 4, 10),
	}, []string{"command"})

	transportErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nntp_client_transport_errors_total",
		Help: "Sessions broken by transport or framing errors",
	})
)

func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
