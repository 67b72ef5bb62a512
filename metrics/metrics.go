// Package metrics records orchestrator phase outcomes as Prometheus
// metrics: functions seen and their disposition, clone attempts, and
// attach failures.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the surface the orchestrator calls into. NewNoop returns an
// implementation that discards everything, so wiring it in is opt-in.
type Recorder interface {
	FunctionDenied(name string)
	FunctionSkipped(reason string)
	FunctionAccepted(argCount int)
	CloneAttempted()
	CloneFailed()
	AttachFailed(name string)
}

// noopRecorder discards every observation.
type noopRecorder struct{}

// NewNoop returns a Recorder that records nothing, the default when no
// Prometheus registry is configured.
func NewNoop() Recorder { return noopRecorder{} }

func (noopRecorder) FunctionDenied(string)  {}
func (noopRecorder) FunctionSkipped(string) {}
func (noopRecorder) FunctionAccepted(int)   {}
func (noopRecorder) CloneAttempted()        {}
func (noopRecorder) CloneFailed()           {}
func (noopRecorder) AttachFailed(string)    {}

// PrometheusRecorder records every observation against a set of counters
// and counter vectors registered on a caller-supplied registry.
type PrometheusRecorder struct {
	denied    *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	accepted  *prometheus.CounterVec
	clones    prometheus.Counter
	cloneFail prometheus.Counter
	attachFail *prometheus.CounterVec
}

// NewPrometheusRecorder registers the mass attacher's metrics on reg and
// returns a Recorder backed by them.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		denied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massattach",
			Name:      "functions_denied_total",
			Help:      "Kernel functions rejected by the filter policy, by denying glob pattern.",
		}, []string{"pattern"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massattach",
			Name:      "functions_skipped_total",
			Help:      "Kernel functions skipped during planning, by reason.",
		}, []string{"reason"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massattach",
			Name:      "functions_accepted_total",
			Help:      "Kernel functions accepted into the attach plan, by argument count.",
		}, []string{"arg_count"}),
		clones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "massattach",
			Name:      "program_clones_total",
			Help:      "Load-phase clone passes started, one per Load covering every entry's programs.",
		}),
		cloneFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "massattach",
			Name:      "program_clone_failures_total",
			Help:      "Load-phase clone passes that stopped at a failed program clone.",
		}),
		attachFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "massattach",
			Name:      "attach_failures_total",
			Help:      "Raw-tracepoint attach attempts that failed, by function name.",
		}, []string{"func"}),
	}

	collectors := []prometheus.Collector{r.denied, r.skipped, r.accepted, r.clones, r.cloneFail, r.attachFail}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *PrometheusRecorder) FunctionDenied(pattern string) {
	r.denied.WithLabelValues(pattern).Inc()
}

func (r *PrometheusRecorder) FunctionSkipped(reason string) {
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) FunctionAccepted(argCount int) {
	r.accepted.WithLabelValues(itoa(argCount)).Inc()
}

func (r *PrometheusRecorder) CloneAttempted() {
	r.clones.Inc()
}

func (r *PrometheusRecorder) CloneFailed() {
	r.cloneFail.Inc()
}

func (r *PrometheusRecorder) AttachFailed(name string) {
	r.attachFail.WithLabelValues(name).Inc()
}

// itoa avoids pulling in strconv just for label formatting at call sites;
// argument counts are always small and non-negative (0..=11).
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
