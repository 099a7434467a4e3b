package model

import "github.com/modelprep/modelprep/pkg/graph"

// ssdRules builds the namespace-to-plugin-node table for the SSD
// Inception v2 graph. Each plugin node stands in for an operation
// subgraph the inference engine cannot parse natively; the engine
// resolves the *_TRT ops through its custom layer plugins at load time.
//
// The table is specific to this network's namespace layout and is not
// meant to generalize.
func ssdRules(d *Data) []graph.Rule {
	input := graph.Node{
		Name: d.InputName,
		Op:   "Placeholder",
		Attrs: graph.Attributes{
			"shape": graph.Ints(1, d.Channels(), d.Height(), d.Width()),
		},
	}
	priorBox := graph.Node{
		Name: "GridAnchor",
		Op:   "GridAnchor_TRT",
		Attrs: graph.Attributes{
			"minSize":          graph.Float(0.2),
			"maxSize":          graph.Float(0.95),
			"aspectRatios":     graph.Floats(1.0, 2.0, 0.5, 3.0, 0.33),
			"variance":         graph.Floats(0.1, 0.1, 0.2, 0.2),
			"featureMapShapes": graph.Ints(19, 10, 5, 3, 2, 1),
			"numLayers":        graph.Int(6),
		},
	}
	nms := graph.Node{
		Name: d.OutputName,
		Op:   "NMS_TRT",
		Attrs: graph.Attributes{
			"shareLocation":           graph.Int(1),
			"varianceEncodedInTarget": graph.Int(0),
			"backgroundLabelId":       graph.Int(0),
			"confidenceThreshold":     graph.Float(1e-8),
			"nmsThreshold":            graph.Float(0.6),
			"topK":                    graph.Int(100),
			"keepTopK":                graph.Int(100),
			"numClasses":              graph.Int(91),
			"inputOrder":              graph.Ints(0, 2, 1),
			"confSigmoid":             graph.Int(1),
			"isNormalized":            graph.Int(1),
		},
	}
	concatPriorBox := graph.Node{
		Name: "concat_priorbox",
		Op:   "ConcatV2",
		Attrs: graph.Attributes{
			"axis": graph.Int(2),
		},
	}
	concatBoxLoc := graph.Node{
		Name: "concat_box_loc",
		Op:   "FlattenConcat_TRT",
		Attrs: graph.Attributes{
			"axis":        graph.Int(1),
			"ignoreBatch": graph.Int(0),
		},
	}
	concatBoxConf := graph.Node{
		Name: "concat_box_conf",
		Op:   "FlattenConcat_TRT",
		Attrs: graph.Attributes{
			"axis":        graph.Int(1),
			"ignoreBatch": graph.Int(0),
		},
	}

	return []graph.Rule{
		{Namespace: "MultipleGridAnchorGenerator", Replacement: priorBox},
		{Namespace: "Postprocessor", Replacement: nms},
		{Namespace: "Preprocessor", Replacement: input},
		{Namespace: "ToFloat", Replacement: input},
		{Namespace: "image_tensor", Replacement: input},
		{Namespace: "MultipleGridAnchorGenerator/Concatenate", Replacement: concatPriorBox},
		{Namespace: "MultipleGridAnchorGenerator/Identity", Replacement: concatPriorBox},
		{Namespace: "concat", Replacement: concatBoxLoc},
		{Namespace: "concat_1", Replacement: concatBoxConf},
	}
}
