package storemodel

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// JSONDriver encodes and decodes wire text. The default implementation is
// backed by goccy/go-json and may be swapped with SetJSONDriver.
//
// Unmarshal must decode numbers as json.Number so that integer attributes
// survive a round trip without float conversion, and must reject trailing
// data after the first value.
type JSONDriver interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = goJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the go-json backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = goJSONDriver{}
	jsonDriverMu.Unlock()
}

func getJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

// StdJSONDriver returns a driver backed by encoding/json.
func StdJSONDriver() JSONDriver { return stdJSONDriver{} }

// GoJSONDriver returns the default driver, backed by goccy/go-json.
func GoJSONDriver() JSONDriver { return goJSONDriver{} }

var errTrailingData = errors.New("storemodel: trailing data after JSON value")

type goJSONDriver struct{}

func (goJSONDriver) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

func (goJSONDriver) Unmarshal(data []byte) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

func (goJSONDriver) Name() string { return "goccy/go-json" }

type stdJSONDriver struct{}

func (stdJSONDriver) Marshal(v any) ([]byte, error) { return stdjson.Marshal(v) }

func (stdJSONDriver) Unmarshal(data []byte) (any, error) {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

func (stdJSONDriver) Name() string { return "encoding/json" }

// Marshal encodes v with the current JSON driver.
func Marshal(v any) ([]byte, error) { return getJSONDriver().Marshal(v) }

// Unmarshal decodes data with the current JSON driver. Numbers decode as
// json.Number.
func Unmarshal(data []byte) (any, error) { return getJSONDriver().Unmarshal(data) }

// encodeText marshals a wire value into JSON text.
func encodeText(v any) (string, error) {
	b, err := getJSONDriver().Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeText decodes wire text. ok is false for malformed input; callers
// degrade to an empty value instead of surfacing the decode failure.
func decodeText(text []byte) (v any, ok bool) {
	v, err := getJSONDriver().Unmarshal(text)
	if err != nil {
		return nil, false
	}
	return v, true
}
