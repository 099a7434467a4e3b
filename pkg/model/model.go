// Package model holds the metadata for supported detection networks: the
// archive location in the model zoo, the frozen-graph and converted file
// paths, and the plugin-node table that drives namespace collapsing.
package model

import (
	"fmt"
	"path/filepath"

	"github.com/modelprep/modelprep/pkg/errors"
	"github.com/modelprep/modelprep/pkg/graph"
)

// DefaultZooURL is the base URL archives are downloaded from. A different
// zoo (e.g. an internal mirror) can be configured per run.
const DefaultZooURL = "http://download.tensorflow.org/models/object_detection"

// SSDInceptionV2 is the only network the rewrite table supports. The
// plugin mapping is specific to this graph's namespace layout, so other
// zoo models are rejected up front.
const SSDInceptionV2 = "ssd_inception_v2_coco_2017_11_17"

// Data describes a supported model: its identity in the zoo, its input
// and output contract, and the namespace rules that make the graph
// loadable by the inference engine.
type Data struct {
	// Name is the model-zoo identifier, also used for directory layout.
	Name string

	// InputName is the placeholder node the engine feeds.
	InputName string

	// InputShape is the CHW shape of the model input.
	InputShape [3]int64

	// OutputName is the single node the converted graph exposes.
	OutputName string

	// GraphFile is the frozen-graph file name inside the extracted archive.
	GraphFile string

	// rules builds the namespace-to-plugin-node table for this network.
	rules func(d *Data) []graph.Rule
}

// Channels returns the channel count of the model input.
func (d *Data) Channels() int64 { return d.InputShape[0] }

// Height returns the input height in pixels.
func (d *Data) Height() int64 { return d.InputShape[1] }

// Width returns the input width in pixels.
func (d *Data) Width() int64 { return d.InputShape[2] }

// ArchiveURL returns the download URL for the model archive under the
// given zoo base URL.
func (d *Data) ArchiveURL(zooURL string) string {
	if zooURL == "" {
		zooURL = DefaultZooURL
	}
	return fmt.Sprintf("%s/%s.tar.gz", zooURL, d.Name)
}

// ArchivePath returns where the downloaded archive lands inside modelsDir.
func (d *Data) ArchivePath(modelsDir string) string {
	return filepath.Join(modelsDir, d.Name+".tar.gz")
}

// GraphPath returns the frozen-graph path inside the extracted archive.
func (d *Data) GraphPath(modelsDir string) string {
	return filepath.Join(modelsDir, d.Name, d.GraphFile)
}

// ConvertedPath returns the destination for the converted interchange file.
func (d *Data) ConvertedPath(modelsDir string) string {
	return filepath.Join(modelsDir, d.Name+".ir.json")
}

// Rules returns the namespace collapsing table for this network. The
// table is rebuilt on every call; callers own the returned slice.
func (d *Data) Rules() []graph.Rule {
	return d.rules(d)
}

var registry = map[string]*Data{
	SSDInceptionV2: {
		Name:       SSDInceptionV2,
		InputName:  "Input",
		InputShape: [3]int64{3, 300, 300},
		OutputName: "NMS",
		GraphFile:  "frozen_inference_graph.json",
		rules:      ssdRules,
	},
}

// Lookup returns the metadata for a supported model name. Any other name
// yields an UNSUPPORTED_MODEL error; callers check this before touching
// the network or the filesystem.
func Lookup(name string) (*Data, error) {
	d, ok := registry[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedModel, "model %s is not supported yet", name)
	}
	return d, nil
}

// Supported returns the names of all supported models.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
