package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// AttrType identifies the value variant stored in an [Attr].
type AttrType int

const (
	// AttrFloat is a single floating-point scalar.
	AttrFloat AttrType = iota
	// AttrInt is a single integer scalar.
	AttrInt
	// AttrString is a string scalar.
	AttrString
	// AttrBool is a boolean scalar.
	AttrBool
	// AttrFloats is a list of floating-point numbers.
	AttrFloats
	// AttrInts is a list of integers.
	AttrInts
)

// Attr is a typed node attribute. Only the field matching Type is
// meaningful; the remaining fields hold their zero values.
//
// Attributes serialize to their natural JSON form (numbers, strings,
// booleans, arrays), so a graph file stays readable without knowledge
// of the tagged representation.
type Attr struct {
	Type      AttrType
	F         float64
	I         int64
	S         string
	B         bool
	FloatList []float64 // set when Type == AttrFloats
	IntList   []int64   // set when Type == AttrInts
}

// Float creates a floating-point attribute.
func Float(v float64) Attr { return Attr{Type: AttrFloat, F: v} }

// Int creates an integer attribute.
func Int(v int64) Attr { return Attr{Type: AttrInt, I: v} }

// Str creates a string attribute.
func Str(v string) Attr { return Attr{Type: AttrString, S: v} }

// Bool creates a boolean attribute.
func Bool(v bool) Attr { return Attr{Type: AttrBool, B: v} }

// Floats creates a list-of-floats attribute.
func Floats(v ...float64) Attr { return Attr{Type: AttrFloats, FloatList: v} }

// Ints creates a list-of-ints attribute.
func Ints(v ...int64) Attr { return Attr{Type: AttrInts, IntList: v} }

// String renders the attribute value for labels and logs.
func (a Attr) String() string {
	switch a.Type {
	case AttrFloat:
		return strconv.FormatFloat(a.F, 'g', -1, 64)
	case AttrInt:
		return strconv.FormatInt(a.I, 10)
	case AttrString:
		return a.S
	case AttrBool:
		return strconv.FormatBool(a.B)
	case AttrFloats:
		parts := make([]string, len(a.FloatList))
		for i, f := range a.FloatList {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case AttrInts:
		parts := make([]string, len(a.IntList))
		for i, n := range a.IntList {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("<invalid attr type %d>", a.Type)
}

// MarshalJSON encodes the attribute as its natural JSON value.
func (a Attr) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case AttrFloat:
		return json.Marshal(a.F)
	case AttrInt:
		return json.Marshal(a.I)
	case AttrString:
		return json.Marshal(a.S)
	case AttrBool:
		return json.Marshal(a.B)
	case AttrFloats:
		return json.Marshal(a.FloatList)
	case AttrInts:
		return json.Marshal(a.IntList)
	}
	return nil, fmt.Errorf("unknown attribute type %d", a.Type)
}

// UnmarshalJSON decodes a natural JSON value into a typed attribute.
// Numbers without a fractional part or exponent decode as integers,
// everything else numeric decodes as a float. Arrays decode as a list
// of ints when every element is integral, otherwise as floats.
func (a *Attr) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case bool:
		*a = Bool(v)
	case string:
		*a = Str(v)
	case json.Number:
		attr, err := numberAttr(v)
		if err != nil {
			return err
		}
		*a = attr
	case []any:
		attr, err := listAttr(v)
		if err != nil {
			return err
		}
		*a = attr
	default:
		return fmt.Errorf("unsupported attribute value %s", string(data))
	}
	return nil
}

func numberAttr(n json.Number) (Attr, error) {
	if isIntegral(n.String()) {
		i, err := n.Int64()
		if err != nil {
			return Attr{}, err
		}
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Attr{}, err
	}
	return Float(f), nil
}

func listAttr(items []any) (Attr, error) {
	allInts := true
	floats := make([]float64, 0, len(items))
	ints := make([]int64, 0, len(items))
	for _, item := range items {
		n, ok := item.(json.Number)
		if !ok {
			return Attr{}, fmt.Errorf("attribute lists may only contain numbers, got %T", item)
		}
		f, err := n.Float64()
		if err != nil {
			return Attr{}, err
		}
		floats = append(floats, f)
		if isIntegral(n.String()) {
			i, _ := n.Int64()
			ints = append(ints, i)
		} else {
			allInts = false
		}
	}
	if allInts {
		return Ints(ints...), nil
	}
	return Floats(floats...), nil
}

func isIntegral(lit string) bool {
	return !strings.ContainsAny(lit, ".eE")
}

// Attributes maps attribute names to typed values.
type Attributes map[string]Attr

// Node is a single operation in a computation graph. Inputs reference
// producer nodes by name; a node with no consumers is a graph output.
//
// The zero value is not usable - Name must be set before adding to a Graph.
type Node struct {
	Name   string     `json:"name"`
	Op     string     `json:"op"`
	Inputs []string   `json:"inputs,omitempty"`
	Attrs  Attributes `json:"attrs,omitempty"`
}

// Clone returns a deep copy of the node. Mutating the copy's inputs or
// attributes leaves the original untouched.
func (n Node) Clone() Node {
	out := n
	out.Inputs = slices.Clone(n.Inputs)
	if n.Attrs != nil {
		out.Attrs = make(Attributes, len(n.Attrs))
		for k, v := range n.Attrs {
			attr := v
			attr.FloatList = slices.Clone(v.FloatList)
			attr.IntList = slices.Clone(v.IntList)
			out.Attrs[k] = attr
		}
	}
	return out
}
