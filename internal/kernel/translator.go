package kernel

import (
	"encoding/json"
	"fmt"

	"github.com/fedcore/corefed/internal/action"
)

// TranslatorOperator converts between an endpoint's message
// representation and a publication/input's value representation. A
// translator sits between the two domains the way a filter sits
// between two endpoints.
type TranslatorOperator interface {
	// ToMessage converts an incoming value (from a publication) into
	// the endpoint message representation.
	ToMessage(msg *action.Message) (*action.Message, error)
	// ToValue converts an incoming endpoint message into the value
	// representation delivered to subscribing inputs.
	ToValue(msg *action.Message) (*action.Message, error)
	// Set applies a numeric configuration property.
	Set(property string, value float64)
	// SetString applies a string configuration property.
	SetString(property string, value string)
}

// translatorDelayKeys lists the property names every TranslatorOperator
// accepts but ignores: HELICS-era translators supported a per-edge
// delay, but the routing fabric here already carries timing through
// the ActionMessage Te/Tdemin fields, so these are silently absorbed
// rather than rejected.
var translatorDelayKeys = map[string]bool{
	"delay":       true,
	"inputdelay":  true,
	"outputdelay": true,
}

// baseTranslator provides the no-op Set/SetString every concrete
// translator embeds, so only ToMessage/ToValue need implementing.
type baseTranslator struct{}

func (baseTranslator) Set(property string, value float64) {
	_ = translatorDelayKeys[property] // recognized-but-ignored; no other property is defined yet
}

func (baseTranslator) SetString(property string, value string) {
	_ = translatorDelayKeys[property]
}

// jsonValue is the wire shape a JSONTranslator exchanges in its
// message payload.
type jsonValue struct {
	Value json.RawMessage `json:"value"`
}

// JSONTranslator round-trips a message payload through a {"value":...}
// JSON envelope, for endpoints and publications that exchange
// structured data instead of raw bytes.
type JSONTranslator struct {
	baseTranslator
}

// NewJSONTranslator returns a ready-to-use JSONTranslator.
func NewJSONTranslator() *JSONTranslator { return &JSONTranslator{} }

func (t *JSONTranslator) ToMessage(msg *action.Message) (*action.Message, error) {
	var env jsonValue
	if err := json.Unmarshal([]byte(msg.Payload.ToStringView()), &env); err != nil {
		return nil, fmt.Errorf("kernel: json translator ToMessage: %w", err)
	}
	out := msg.Clone()
	if err := out.Payload.Assign(env.Value); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *JSONTranslator) ToValue(msg *action.Message) (*action.Message, error) {
	env := jsonValue{Value: json.RawMessage(msg.Payload.ToStringView())}
	encoded, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("kernel: json translator ToValue: %w", err)
	}
	out := msg.Clone()
	if err := out.Payload.Assign(encoded); err != nil {
		return nil, err
	}
	return out, nil
}

// BinaryTranslator passes the payload through unchanged in both
// directions: the default when value and message representations
// share the same wire format.
type BinaryTranslator struct {
	baseTranslator
}

// NewBinaryTranslator returns a ready-to-use BinaryTranslator.
func NewBinaryTranslator() *BinaryTranslator { return &BinaryTranslator{} }

func (t *BinaryTranslator) ToMessage(msg *action.Message) (*action.Message, error) {
	return msg.Clone(), nil
}

func (t *BinaryTranslator) ToValue(msg *action.Message) (*action.Message, error) {
	return msg.Clone(), nil
}

// CustomTranslator adapts two plain functions to TranslatorOperator,
// for conversions that don't fit the JSON or binary shapes (e.g. a
// federate-supplied codec).
type CustomTranslator struct {
	baseTranslator
	ToMessageFunc func(msg *action.Message) (*action.Message, error)
	ToValueFunc   func(msg *action.Message) (*action.Message, error)
}

func (t *CustomTranslator) ToMessage(msg *action.Message) (*action.Message, error) {
	return t.ToMessageFunc(msg)
}

func (t *CustomTranslator) ToValue(msg *action.Message) (*action.Message, error) {
	return t.ToValueFunc(msg)
}
