package storemodel

// Observer receives notifications about casting and validation. It is the
// seam used by the metrics package; implementations must be cheap and must
// not call back into the instance being processed.
type Observer interface {
	// CastCompleted is called once per container cast.
	CastCompleted(kind Kind, schema string, err error)
	// UnknownAttributeRecovered is called for every key parked in an
	// instance's unknown attributes.
	UnknownAttributeRecovered(schema, attribute string)
	// Validated is called after Instance.Validate.
	Validated(schema string, valid bool)
}

type nopObserver struct{}

func (nopObserver) CastCompleted(Kind, string, error)        {}
func (nopObserver) UnknownAttributeRecovered(string, string) {}
func (nopObserver) Validated(string, bool)                   {}
