package selection

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
)

// varKey marks a variable reference in the JSON wire format.
const varKey = "$var"

// wireField is the JSON wire form of a Field.
type wireField struct {
	Field string                     `json:"field"`
	Alias string                     `json:"alias,omitempty"`
	Args  map[string]json.RawMessage `json:"args,omitempty"`
	Of    []wireField                `json:"of,omitempty"`
}

// Parse decodes a Shape from its JSON wire format and validates it.
func Parse(data []byte) (Shape, error) {
	var wire []wireField
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse shape: %w", err)
	}

	shape, err := fromWire(wire)
	if err != nil {
		return nil, fmt.Errorf("parse shape: %w", err)
	}
	if err := Validate(shape); err != nil {
		return nil, err
	}
	return shape, nil
}

func fromWire(wire []wireField) (Shape, error) {
	shape := make(Shape, 0, len(wire))
	for _, wf := range wire {
		f := Field{Name: wf.Field, Alias: wf.Alias}

		// Deterministic argument order: sorted by name. Argument order
		// never affects storage keys, only display.
		for _, name := range sortedArgNames(wf.Args) {
			arg, err := parseArg(name, wf.Args[name])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", wf.Field, err)
			}
			f.Args = append(f.Args, arg)
		}

		if len(wf.Of) > 0 {
			of, err := fromWire(wf.Of)
			if err != nil {
				return nil, err
			}
			f.Of = of
		}
		shape = append(shape, f)
	}
	return shape, nil
}

func parseArg(name string, raw json.RawMessage) (Argument, error) {
	// Variable form: {"$var": "name"}
	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err == nil && len(asMap) == 1 {
		if v, ok := asMap[varKey]; ok {
			var varName string
			if err := json.Unmarshal(v, &varName); err != nil {
				return Argument{}, fmt.Errorf("arg %q: $var must be a string", name)
			}
			if varName == "" {
				return Argument{}, fmt.Errorf("arg %q: empty variable name", name)
			}
			return Argument{Name: name, Variable: varName}, nil
		}
	}

	val, err := ir.DecodeValue(raw)
	if err != nil {
		return Argument{}, fmt.Errorf("arg %q: %w", name, err)
	}
	return Argument{Name: name, Value: val}, nil
}

func sortedArgNames(args map[string]json.RawMessage) []string {
	obj := make(ir.Object, len(args))
	for k := range args {
		obj[k] = ir.Null{}
	}
	return obj.SortedKeys()
}

// MarshalJSON implements json.Marshaler for Shape using the wire format.
func (s Shape) MarshalJSON() ([]byte, error) {
	wire, err := toWire(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

func toWire(s Shape) ([]wireField, error) {
	wire := make([]wireField, 0, len(s))
	for _, f := range s {
		wf := wireField{Field: f.Name, Alias: f.Alias}
		if len(f.Args) > 0 {
			wf.Args = make(map[string]json.RawMessage, len(f.Args))
			for _, a := range f.Args {
				if a.Variable != "" {
					raw, err := json.Marshal(map[string]string{varKey: a.Variable})
					if err != nil {
						return nil, err
					}
					wf.Args[a.Name] = raw
					continue
				}
				raw, err := json.Marshal(a.Value)
				if err != nil {
					return nil, err
				}
				wf.Args[a.Name] = raw
			}
		}
		if len(f.Of) > 0 {
			of, err := toWire(f.Of)
			if err != nil {
				return nil, err
			}
			wf.Of = of
		}
		wire = append(wire, wf)
	}
	return wire, nil
}
