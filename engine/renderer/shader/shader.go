// Package shader wraps one WGSL stage: its source, entry point, vertex layouts, the wgpu module
// descriptor and the binding reflection that the schema and the bind group layouts are built from.
package shader

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	stage      reflection.Stage
	entryPoint string

	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	module                     *wgpu.ShaderModuleDescriptor
	reflection                 *reflection.StageReflection

	reflector reflection.Reflector
	pp        PreProcessor
}

// Shader is a loaded and reflected WGSL stage.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// Stage returns the pipeline stage this shader was loaded for.
	//
	// Returns:
	//   - reflection.Stage: the shader's stage
	Stage() reflection.Stage

	// Blob returns the bytes handed to reflection, used as the schema cache input.
	//
	// Returns:
	//   - []byte: the pre-processed source bytes
	Blob() []byte

	// BindGroupLayoutDescriptors retrieves the layout of every binding the stage's entry point
	// uses, keyed by group index. Unused declarations are left out so that every layout entry has
	// a name the schema can bind.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if the stage does not use that binding
	BindGroupVarName(group, binding int) string

	// VertexLayout retrieves the vertex buffer layout for a specific key.
	//
	// Parameters:
	//   - key: the integer key identifying the vertex layout
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layout associated with the key, or nil if not set
	VertexLayout(key int) []wgpu.VertexBufferLayout

	// VertexLayouts retrieves all vertex buffer layouts parsed from vertex input structs.
	//
	// Returns:
	//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by declaration order
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size of a compute shader, or [0, 0, 0] for other stages.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Reflection returns the constant buffers, resources and samplers the entry point uses.
	//
	// Returns:
	//   - *reflection.StageReflection: the stage reflection
	Reflection() *reflection.StageReflection
}

var _ Shader = &shader{}

// NewShader pre-processes, parses and reflects WGSL source for one stage.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - stage: the stage whose entry point is loaded
//   - source: the WGSL source code
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the loaded shader
//   - error: ErrEmptySource, a pre-processing error, ErrNoEntryPoint or a reflection error
func NewShader(key string, stage reflection.Stage, source string, options ...ShaderBuilderOption) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: %w", key, ErrEmptySource)
	}
	s := &shader{
		key:                        key,
		stage:                      stage,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		vertexLayouts:              make(map[int][]wgpu.VertexBufferLayout),
		pp:                         NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.parseSource(source); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads a WGSL file and loads it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - stage: the stage whose entry point is loaded
//   - path: the file path to read WGSL source from
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the loaded shader
//   - error: a read error or any error returned by NewShader
func NewShaderFromPath(key string, stage reflection.Stage, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: read %q: %w", key, path, err)
	}
	return NewShader(key, stage, string(data), options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Stage() reflection.Stage {
	return s.stage
}

func (s *shader) Blob() []byte {
	return []byte(s.source)
}

func (s *shader) VertexLayout(key int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[key]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Reflection() *reflection.StageReflection {
	return s.reflection
}

// parseSource pre-processes the source, finds the stage's entry point, reflects it, and derives the
// vertex layouts, workgroup size and used bind group layouts.
func (s *shader) parseSource(raw string) error {
	source, err := s.pp.Process(raw)
	if err != nil {
		return err
	}
	s.source = source
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}

	s.entryPoint = parseEntryPoint(s.source, s.stage)
	if s.entryPoint == "" {
		return fmt.Errorf("%w: %s", reflection.ErrNoEntryPoint, s.stage)
	}

	reflector := s.reflector
	if reflector == nil {
		reflector = reflection.NewReflector(reflection.WithEntryPoint(s.entryPoint))
	}
	if s.reflection, err = reflector.Reflect(s.stage, s.Blob()); err != nil {
		return err
	}

	switch s.stage {
	case reflection.StageVertex:
		s.vertexLayouts = parseVertexLayouts(s.source)
	case reflection.StageCompute:
		s.workGroupSize = parseWorkgroupSize(s.source)
	}

	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, stageVisibility(s.stage), s.reflection)

	common.Logger().Debug("shader loaded",
		"key", s.key,
		"stage", s.stage.String(),
		"entryPoint", s.entryPoint,
		"groups", len(s.bindGroupLayoutDescriptors),
		"vertexLayouts", len(s.vertexLayouts))
	return nil
}

// stageVisibility maps a stage to its wgpu visibility flag.
func stageVisibility(stage reflection.Stage) wgpu.ShaderStage {
	switch stage {
	case reflection.StageVertex:
		return wgpu.ShaderStageVertex
	case reflection.StageFragment:
		return wgpu.ShaderStageFragment
	case reflection.StageCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}
