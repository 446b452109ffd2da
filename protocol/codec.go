// protocol/codec.go
package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// SharedContext is the envelope context of messages valid everywhere.
const SharedContext = "shared"

// Envelope is the JSON object carried on every line.
type Envelope struct {
	Context string          `json:"context"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ContextOf returns the envelope context name of msg.
func ContextOf(msg Msg) string {
	if t, ok := msg.(Tagged); ok {
		if _, shared := msg.(SharedMsg); !shared {
			return t.Kind().String()
		}
	}
	return SharedContext
}

// Encode renders msg as a single JSON line without the trailing newline.
func Encode(msg Msg) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	env := Envelope{Context: ContextOf(msg), Type: msg.Type()}
	if string(payload) != "{}" {
		env.Payload = payload
	}
	return json.Marshal(env)
}

// Registry maps envelope (context, type) pairs back to message types.
type Registry struct {
	types map[string]reflect.Type
}

// NewRegistry registers the concrete types of the given prototypes.
func NewRegistry(prototypes ...Msg) *Registry {
	r := &Registry{types: make(map[string]reflect.Type, len(prototypes))}
	for _, p := range prototypes {
		r.types[registryKey(ContextOf(p), p.Type())] = reflect.TypeOf(p)
	}
	return r
}

func registryKey(context, typ string) string {
	return context + "/" + typ
}

// Decode parses one line into the registered message it names.
func (r *Registry) Decode(line []byte) (Msg, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	typ, ok := r.types[registryKey(env.Context, env.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown message %s/%s", ErrDecode, env.Context, env.Type)
	}
	v := reflect.New(typ)
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, v.Interface()); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrDecode, env.Context, env.Type, err)
		}
	}
	return v.Elem().Interface().(Msg), nil
}
