// Package metrics exports storemodel casting and validation activity as
// Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reoring/storemodel"
)

// Observer implements storemodel.Observer on top of Prometheus counters.
type Observer struct {
	casts       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	recovered   *prometheus.CounterVec
	validations *prometheus.CounterVec
}

var _ storemodel.Observer = (*Observer)(nil)

// NewObserver creates the collectors under namespace and registers them with
// reg. Registration errors (for example a second observer on the same
// registry) are returned as is.
func NewObserver(reg prometheus.Registerer, namespace string) (*Observer, error) {
	o := &Observer{
		casts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casts_total",
			Help:      "Container casts by kind and schema.",
		}, []string{"kind", "schema"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cast_failures_total",
			Help:      "Container casts that returned an error, by kind, schema and error code.",
		}, []string{"kind", "schema", "code"}),
		recovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_attributes_total",
			Help:      "Unknown wire keys parked in an instance's unknown attributes.",
		}, []string{"schema"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Instance validations by schema and result.",
		}, []string{"schema", "result"}),
	}
	for _, c := range []prometheus.Collector{o.casts, o.failures, o.recovered, o.validations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustNewObserver is NewObserver that panics on a registration error.
func MustNewObserver(reg prometheus.Registerer, namespace string) *Observer {
	o, err := NewObserver(reg, namespace)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Observer) CastCompleted(kind storemodel.Kind, schema string, err error) {
	o.casts.WithLabelValues(kind.String(), schema).Inc()
	if err == nil {
		return
	}
	code := storemodel.CodeOf(err)
	if code == "" {
		code = "other"
	}
	o.failures.WithLabelValues(kind.String(), schema, code).Inc()
}

func (o *Observer) UnknownAttributeRecovered(schema, _ string) {
	// Attribute names come from wire data; keep them out of the label set.
	o.recovered.WithLabelValues(schema).Inc()
}

func (o *Observer) Validated(schema string, valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	o.validations.WithLabelValues(schema, result).Inc()
}
