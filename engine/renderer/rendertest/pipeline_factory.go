package rendertest

import (
	"fmt"

	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// PipelineCall records the arguments of one CreatePipelineFromConfig call.
type PipelineCall struct {
	ConfigPath   string
	Extent       metadata.Extent2D
	MaxInstances uint32
	Binding      metadata.VertexInputBinding
	Attributes   []metadata.VertexInputAttribute
	UBOSize      uint64
	IndexType    metadata.IndexType
}

// Handle is the pipeline handle produced by PipelineFactory.
type Handle struct {
	ConfigPath string
	Destroyed  bool
}

// PipelineFactory is a fake renderer.PipelineFactory. Paths listed in
// FailPaths fail to build.
type PipelineFactory struct {
	FailPaths map[string]bool

	Calls     []PipelineCall
	Destroyed []*Handle
}

func NewPipelineFactory() *PipelineFactory {
	return &PipelineFactory{FailPaths: map[string]bool{}}
}

func (f *PipelineFactory) CreatePipelineFromConfig(
	configPath string,
	extent metadata.Extent2D,
	maxInstances uint32,
	binding metadata.VertexInputBinding,
	attributes []metadata.VertexInputAttribute,
	uboSize uint64,
	indexType metadata.IndexType,
) (metadata.PipelineHandle, error) {
	f.Calls = append(f.Calls, PipelineCall{
		ConfigPath:   configPath,
		Extent:       extent,
		MaxInstances: maxInstances,
		Binding:      binding,
		Attributes:   attributes,
		UBOSize:      uboSize,
		IndexType:    indexType,
	})
	if f.FailPaths[configPath] {
		return nil, fmt.Errorf("pipeline '%s': %w", configPath, ErrInjected)
	}
	return &Handle{ConfigPath: configPath}, nil
}

func (f *PipelineFactory) DestroyPipeline(handle metadata.PipelineHandle) {
	if h, ok := handle.(*Handle); ok {
		h.Destroyed = true
		f.Destroyed = append(f.Destroyed, h)
	}
}
