package graph

import (
	"bytes"
	"slices"
	"strings"
	"testing"
)

func TestGraphRoundTrip(t *testing.T) {
	g := New()
	mustAdd(t, g,
		Node{Name: "Input", Op: "Placeholder", Attrs: Attributes{"shape": Ints(1, 3, 300, 300)}},
		Node{Name: "conv", Op: "Conv2D", Inputs: []string{"Input"}, Attrs: Attributes{
			"padding":   Str("SAME"),
			"trainable": Bool(false),
			"scale":     Float(0.2),
		}},
		Node{Name: "NMS", Op: "NMS_TRT", Inputs: []string{"conv"}, Attrs: Attributes{
			"confidenceThreshold": Float(1e-8),
			"topK":                Int(100),
			"variance":            Floats(0.1, 0.1, 0.2, 0.2),
		}},
	)

	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}

	got, err := ReadGraph(&buf)
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}

	if got.NodeCount() != 3 {
		t.Fatalf("NodeCount = %d, want 3", got.NodeCount())
	}
	if outs := got.Outputs(); !slices.Equal(outs, []string{"NMS"}) {
		t.Errorf("Outputs = %v, want [NMS]", outs)
	}

	nms, _ := got.Node("NMS")
	if a := nms.Attrs["topK"]; a.Type != AttrInt || a.I != 100 {
		t.Errorf("topK = %+v, want Int(100)", a)
	}
	if a := nms.Attrs["confidenceThreshold"]; a.Type != AttrFloat || a.F != 1e-8 {
		t.Errorf("confidenceThreshold = %+v, want Float(1e-8)", a)
	}
	if a := nms.Attrs["variance"]; a.Type != AttrFloats || !slices.Equal(a.FloatList, []float64{0.1, 0.1, 0.2, 0.2}) {
		t.Errorf("variance = %+v", a)
	}

	conv, _ := got.Node("conv")
	if a := conv.Attrs["padding"]; a.Type != AttrString || a.S != "SAME" {
		t.Errorf("padding = %+v", a)
	}
	if a := conv.Attrs["trainable"]; a.Type != AttrBool || a.B {
		t.Errorf("trainable = %+v", a)
	}

	input, _ := got.Node("Input")
	if a := input.Attrs["shape"]; a.Type != AttrInts || !slices.Equal(a.IntList, []int64{1, 3, 300, 300}) {
		t.Errorf("shape = %+v", a)
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, g *Graph)
	}{
		{
			name:  "Empty",
			input: `{"nodes": []}`,
			check: func(t *testing.T, g *Graph) {
				if g.NodeCount() != 0 {
					t.Errorf("NodeCount = %d, want 0", g.NodeCount())
				}
			},
		},
		{
			name:  "OutputsDerivedNotTrusted",
			input: `{"nodes": [{"name":"a","op":"Const"},{"name":"b","op":"Identity","inputs":["a"]}], "outputs": ["a"]}`,
			check: func(t *testing.T, g *Graph) {
				if outs := g.Outputs(); !slices.Equal(outs, []string{"b"}) {
					t.Errorf("Outputs = %v, want [b] (derived from consumers)", outs)
				}
			},
		},
		{
			name:    "DuplicateNode",
			input:   `{"nodes": [{"name":"a"},{"name":"a"}]}`,
			wantErr: true,
		},
		{
			name:    "Malformed",
			input:   `{"nodes": [`,
			wantErr: true,
		},
		{
			name:    "NonNumericAttrList",
			input:   `{"nodes": [{"name":"a","attrs":{"bad":["x","y"]}}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}
