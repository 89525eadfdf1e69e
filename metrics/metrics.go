package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

const (
	MetricsNamespace = "bintest"
)

var (
	Debug                bool = false
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "builds_total",
		Help:      "Count of build tool invocations by outcome",
	}, []string{
		"result",
	})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "build_duration_seconds",
		Help:      "Wall clock duration of build tool invocations",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{
		"result",
	})

	buildRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "build_records_total",
		Help:      "Count of parsed build output records by type",
	}, []string{
		"type",
	})

	artifactsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "artifacts_indexed_total",
		Help:      "Count of executables added to the artifact index",
	}, []string{
		"kind",
	})

	artifactsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "artifacts_dropped_total",
		Help:      "Count of reported executables that were not indexed",
	}, []string{
		"reason",
	})

	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "lookups_total",
		Help:      "Count of executable lookups by result",
	}, []string{
		"result",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordBuild records one finished build tool invocation
func RecordBuild(result string, duration time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "builds_total",
			"result", result,
			"duration", duration)
	}
	buildsTotal.WithLabelValues(result).Inc()
	buildDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func RecordBuildRecord(kind types.RecordKind) {
	buildRecordsTotal.WithLabelValues(string(kind)).Inc()
}

func RecordArtifactIndexed(kind types.Kind) {
	artifactsIndexed.WithLabelValues(string(kind)).Inc()
}

func RecordArtifactDropped(reason string) {
	artifactsDropped.WithLabelValues(reason).Inc()
}

func RecordLookup(result string) {
	lookupsTotal.WithLabelValues(result).Inc()
}
