// Package telemetry exports simulator progress as Prometheus metrics.
package telemetry

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/san-kum/blocksim/internal/sim"
)

const namespace = "blocksim"

// Recorder is a sim.Observer and sim.RunObserver that counts steps, task
// activations and runs of one model.
type Recorder struct {
	model string

	steps       prometheus.Counter
	activations *prometheus.CounterVec
	simTime     prometheus.Gauge
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
}

var (
	_ sim.Observer    = (*Recorder)(nil)
	_ sim.RunObserver = (*Recorder)(nil)
)

// NewRecorder registers the collectors on reg, labelled with the model name.
// Registering twice for the same model on one registry panics.
func NewRecorder(reg prometheus.Registerer, model string) *Recorder {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"model": model}
	return &Recorder{
		model: model,
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "steps_total",
			Help:        "Base steps executed",
			ConstLabels: labels,
		}),
		activations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "task_activations_total",
			Help:        "Task activations by sample time",
			ConstLabels: labels,
		}, []string{"sample_time"}),
		simTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "time_seconds",
			Help:        "Simulation time of the last completed step",
			ConstLabels: labels,
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "runs_total",
			Help:        "Finished runs by status",
			ConstLabels: labels,
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "run_duration_seconds",
			Help:        "Wall-clock duration of runs",
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10),
			ConstLabels: labels,
		}),
	}
}

func (r *Recorder) OnStep(t float64, active []*sim.Task) {
	r.steps.Inc()
	r.simTime.Set(t)
	for _, task := range active {
		r.activations.WithLabelValues(SampleTimeLabel(task.SampleTime())).Inc()
	}
}

func (r *Recorder) OnRunEnd(steps int64, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

// SampleTimeLabel formats a sample time as a label value.
func SampleTimeLabel(st float64) string {
	return strconv.FormatFloat(st, 'g', 6, 64)
}

// WriteTextfile writes every metric gathered from g in the node exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "telemetry: write %s", path)
	}
	return nil
}
