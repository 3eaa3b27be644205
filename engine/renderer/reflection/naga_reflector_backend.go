package reflection

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// nagaReflector implements Reflector by lowering WGSL to naga IR and walking its globals.
type nagaReflector struct {
	entryPoint string
	allGlobals bool
}

var _ Reflector = &nagaReflector{}

// NewReflector creates the WGSL Reflector. By default the first entry point declared for the
// requested stage is reflected and only the globals reachable from it are reported.
//
// Parameters:
//   - options: variadic list of ReflectorBuilderOption functions
//
// Returns:
//   - Reflector: the configured reflector
func NewReflector(options ...ReflectorBuilderOption) Reflector {
	r := &nagaReflector{}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *nagaReflector) Reflect(stage Stage, blob []byte) (*StageReflection, error) {
	out := &StageReflection{Stage: stage}
	if len(blob) == 0 {
		return out, nil
	}

	source := string(blob)
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s stage: %w", ErrReflection, stage, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s stage: %w", ErrReflection, stage, err)
	}

	ep, err := r.findEntryPoint(module, stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %s stage: %w", ErrReflection, stage, err)
	}
	out.EntryPoint = ep.Name
	out.Workgroup = ep.Workgroup

	var used map[ir.GlobalVariableHandle]bool
	if !r.allGlobals {
		used = usedGlobals(module, &ep.Function)
	}

	for i, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if used != nil && !used[ir.GlobalVariableHandle(i)] {
			continue
		}
		if gv.Binding.Binding >= SlotsPerGroup {
			return nil, fmt.Errorf("%w: %s stage: %q @binding(%d): %w", ErrReflection, stage, gv.Name, gv.Binding.Binding, ErrSlotOutOfRange)
		}
		slot := SlotOf(gv.Binding.Group, gv.Binding.Binding)

		switch gv.Space {
		case ir.SpaceUniform:
			cb, cbErr := constantBuffer(module, gv, slot)
			if cbErr != nil {
				return nil, fmt.Errorf("%w: %s stage: uniform %q: %w", ErrReflection, stage, gv.Name, cbErr)
			}
			out.ConstantBuffers = append(out.ConstantBuffers, cb)
		case ir.SpaceStorage:
			kind := ResourceReadOnlyStorageBuffer
			if gv.Access == ir.StorageReadWrite {
				kind = ResourceStorageBuffer
			}
			out.Resources = append(out.Resources, Resource{
				Name:           gv.Name,
				Slot:           slot,
				Kind:           kind,
				MinBindingSize: storagePrefixSize(module, gv.Type),
			})
		case ir.SpaceHandle:
			switch t := typeInner(module, gv.Type).(type) {
			case ir.SamplerType:
				out.Samplers = append(out.Samplers, Sampler{Name: gv.Name, Slot: slot, Comparison: t.Comparison})
			case ir.ImageType:
				out.Resources = append(out.Resources, imageResource(gv.Name, slot, t))
			}
		}
	}

	sort.Slice(out.ConstantBuffers, func(i, j int) bool { return out.ConstantBuffers[i].Slot < out.ConstantBuffers[j].Slot })
	sort.Slice(out.Resources, func(i, j int) bool { return out.Resources[i].Slot < out.Resources[j].Slot })
	sort.Slice(out.Samplers, func(i, j int) bool { return out.Samplers[i].Slot < out.Samplers[j].Slot })

	common.Logger().Debug("reflected shader stage",
		"stage", stage.String(),
		"entryPoint", out.EntryPoint,
		"constantBuffers", len(out.ConstantBuffers),
		"resources", len(out.Resources),
		"samplers", len(out.Samplers))
	return out, nil
}

// findEntryPoint returns the configured or first entry point for the stage.
func (r *nagaReflector) findEntryPoint(module *ir.Module, stage Stage) (ir.EntryPoint, error) {
	var want ir.ShaderStage
	switch stage {
	case StageVertex:
		want = ir.StageVertex
	case StageFragment:
		want = ir.StageFragment
	case StageCompute:
		want = ir.StageCompute
	default:
		return ir.EntryPoint{}, fmt.Errorf("unknown stage %d", int(stage))
	}
	for _, ep := range module.EntryPoints {
		if ep.Stage != want {
			continue
		}
		if r.entryPoint == "" || ep.Name == r.entryPoint {
			return ep, nil
		}
	}
	if r.entryPoint != "" {
		return ir.EntryPoint{}, fmt.Errorf("%w: %q", ErrNoEntryPoint, r.entryPoint)
	}
	return ir.EntryPoint{}, ErrNoEntryPoint
}

func typeInner(module *ir.Module, handle ir.TypeHandle) ir.TypeInner {
	if int(handle) >= len(module.Types) {
		return nil
	}
	return module.Types[handle].Inner
}

// constantBuffer describes a uniform binding. A struct contributes its top-level members; any
// other type is a single constant named after the variable.
func constantBuffer(module *ir.Module, gv ir.GlobalVariable, slot uint32) (ConstantBuffer, error) {
	cb := ConstantBuffer{Name: gv.Name, Slot: slot}

	if st, ok := typeInner(module, gv.Type).(ir.StructType); ok {
		cb.Variables = make([]Variable, 0, len(st.Members))
		for _, m := range st.Members {
			size, err := typeSize(module, m.Type)
			if err != nil {
				return cb, fmt.Errorf("member %q: %w", m.Name, err)
			}
			cb.Variables = append(cb.Variables, Variable{Name: m.Name, Offset: m.Offset, Size: size})
		}
		cb.Size = common.AlignUp(16, st.Span)
		return cb, nil
	}

	size, err := typeSize(module, gv.Type)
	if err != nil {
		return cb, err
	}
	cb.Variables = []Variable{{Name: gv.Name, Offset: 0, Size: size}}
	cb.Size = common.AlignUp(16, size)
	return cb, nil
}

func imageResource(name string, slot uint32, t ir.ImageType) Resource {
	res := Resource{Name: name, Slot: slot, Multisampled: t.Multisampled}
	switch t.Class {
	case ir.ImageClassDepth:
		res.Kind = ResourceDepthTexture
	case ir.ImageClassStorage:
		res.Kind = ResourceStorageTexture
	default:
		res.Kind = ResourceSampledTexture
	}
	switch t.Dim {
	case ir.Dim1D:
		res.Dimension = ViewDimension1D
	case ir.Dim3D:
		res.Dimension = ViewDimension3D
	case ir.DimCube:
		res.Dimension = ViewDimensionCube
		if t.Arrayed {
			res.Dimension = ViewDimensionCubeArray
		}
	default:
		res.Dimension = ViewDimension2D
		if t.Arrayed {
			res.Dimension = ViewDimension2DArray
		}
	}
	return res
}

// usedGlobals collects every global referenced by root and the functions it calls. Entry point
// bodies are inline, so only callees are resolved through module.Functions.
func usedGlobals(module *ir.Module, root *ir.Function) map[ir.GlobalVariableHandle]bool {
	used := make(map[ir.GlobalVariableHandle]bool)
	visited := make(map[ir.FunctionHandle]bool)

	var scan func(fn *ir.Function)
	visit := func(h ir.FunctionHandle) {
		if visited[h] || int(h) >= len(module.Functions) {
			return
		}
		visited[h] = true
		scan(&module.Functions[h])
	}
	scan = func(fn *ir.Function) {
		for _, e := range fn.Expressions {
			switch k := e.Kind.(type) {
			case ir.ExprGlobalVariable:
				used[k.Variable] = true
			case ir.ExprCallResult:
				visit(k.Function)
			}
		}
		walkCalls(fn.Body, visit)
	}
	scan(root)
	return used
}

// walkCalls visits the callee of every call statement nested in block.
func walkCalls(block ir.Block, visit func(ir.FunctionHandle)) {
	for _, st := range block {
		switch k := st.Kind.(type) {
		case ir.StmtCall:
			visit(k.Function)
		case ir.StmtBlock:
			walkCalls(k.Block, visit)
		case ir.StmtIf:
			walkCalls(k.Accept, visit)
			walkCalls(k.Reject, visit)
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				walkCalls(c.Body, visit)
			}
		case ir.StmtLoop:
			walkCalls(k.Body, visit)
			walkCalls(k.Continuing, visit)
		}
	}
}
