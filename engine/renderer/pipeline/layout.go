package pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// mergeBindGroupLayouts combines the bind group layout descriptors of several stages into the
// descriptors of one pipeline layout.
//
// For each group index present in any stage:
//   - entries with the same binding number have their Visibility flags ORed together and keep the
//     widest MinBindingSize
//   - entries unique to one stage are included with their original visibility
//
// Parameters:
//   - shaders: the pipeline's stages
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
//   - error: ErrLayoutConflict when stages disagree on the kind or name of a binding
func mergeBindGroupLayouts(shaders ...shader.Shader) (map[int]wgpu.BindGroupLayoutDescriptor, error) {
	type owned struct {
		entry wgpu.BindGroupLayoutEntry
		name  string
		owner string
	}
	groups := make(map[int]map[uint32]owned)

	for _, s := range shaders {
		for g, desc := range s.BindGroupLayoutDescriptors() {
			entries, ok := groups[g]
			if !ok {
				entries = make(map[uint32]owned)
				groups[g] = entries
			}
			for _, e := range desc.Entries {
				name := s.BindGroupVarName(g, int(e.Binding))
				existing, ok := entries[e.Binding]
				if !ok {
					entries[e.Binding] = owned{entry: e, name: name, owner: s.Key()}
					continue
				}
				if existing.name != name || !sameBindingKind(existing.entry, e) {
					return nil, fmt.Errorf("%w: group %d binding %d is %q in %s and %q in %s",
						ErrLayoutConflict, g, e.Binding, existing.name, existing.owner, name, s.Key())
				}
				existing.entry.Visibility |= e.Visibility
				existing.entry.Buffer.MinBindingSize = max(existing.entry.Buffer.MinBindingSize, e.Buffer.MinBindingSize)
				entries[e.Binding] = existing
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, byBinding := range groups {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, o := range byBinding {
			entries = append(entries, o.entry)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("group %d", g),
			Entries: entries,
		}
	}
	return merged, nil
}

// sameBindingKind compares two entries ignoring visibility and buffer binding size.
func sameBindingKind(a, b wgpu.BindGroupLayoutEntry) bool {
	a.Visibility, b.Visibility = 0, 0
	a.Buffer.MinBindingSize, b.Buffer.MinBindingSize = 0, 0
	return a == b
}
