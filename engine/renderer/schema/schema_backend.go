package schema

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/reflection"
)

// slotEntry is one resolved binding: a unique index placed at a stage slot.
type slotEntry struct {
	stage reflection.Stage
	slot  uint32
	index uint32
}

// build runs the whole schema construction over s.inputs. It only assigns fields of s, so a failed
// build leaves nothing observable behind.
func (s *schema) build() error {
	sort.SliceStable(s.inputs, func(i, j int) bool {
		return s.inputs[i].Stage < s.inputs[j].Stage
	})

	var (
		vars     []variableRef
		cbs      []cbDesc
		srvs     []bindingRef
		samplers []bindingRef
	)
	for _, in := range s.inputs {
		if in.Stage < 0 || in.Stage >= reflection.StageCount {
			return fmt.Errorf("%w: %d", ErrInvalidStage, in.Stage)
		}
		if s.present[in.Stage] {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, in.Stage)
		}
		s.present[in.Stage] = true
		s.stages = append(s.stages, in.Stage)

		for _, cb := range in.ConstantBuffers {
			d := cbDesc{
				stage:    in.Stage,
				slot:     cb.Slot,
				size:     cb.Size,
				name:     cb.Name,
				firstVar: len(vars),
				varCount: len(cb.Variables),
				merge:    len(cbs),
			}
			for _, v := range cb.Variables {
				vars = append(vars, variableRef{
					stage:  in.Stage,
					cb:     len(cbs),
					offset: v.Offset,
					size:   v.Size,
					hash:   common.NameHash(v.Name),
					name:   v.Name,
				})
			}
			own := vars[d.firstVar : d.firstVar+d.varCount]
			sort.SliceStable(own, func(i, j int) bool {
				return own[i].offset < own[j].offset
			})
			cbs = append(cbs, d)
		}
		for _, r := range in.Resources {
			srvs = append(srvs, bindingRef{stage: in.Stage, slot: r.Slot, hash: common.NameHash(r.Name), name: r.Name})
		}
		for _, sm := range in.Samplers {
			samplers = append(samplers, bindingRef{stage: in.Stage, slot: sm.Slot, hash: common.NameHash(sm.Name), name: sm.Name})
		}
	}

	if err := s.resolveNames(vars, srvs, samplers); err != nil {
		return err
	}
	s.layoutStaging(vars)
	compact := s.fuseConstantBuffers(vars, cbs)
	s.planMovements(vars, cbs, compact)

	cbEntries := make([]slotEntry, len(cbs))
	for i, cb := range cbs {
		cbEntries[i] = slotEntry{stage: cb.stage, slot: cb.slot, index: uint32(compact[i])}
	}
	s.buildTable(CategoryConstantBuffer, cbEntries, uint32(len(s.cbSizes)))
	s.buildTable(CategoryShaderResource, s.resolveBindings(srvs, s.srvHashes), uint32(len(s.srvNames)))
	s.buildTable(CategorySampler, s.resolveBindings(samplers, s.samplerHashes), uint32(len(s.samplerNames)))

	common.Logger().Debug("schema built",
		"label", s.label,
		"stages", len(s.stages),
		"constants", len(s.constantNames),
		"staging_bytes", s.stagingSize,
		"buffers", len(s.cbSizes),
		"declared_buffers", len(cbs),
		"movements", len(s.movements),
		"srvs", len(s.srvNames),
		"samplers", len(s.samplerNames),
	)
	return nil
}

// resolveNames builds the sorted unique name tables of all three categories.
func (s *schema) resolveNames(vars []variableRef, srvs, samplers []bindingRef) error {
	constants := make([]namedHash, len(vars))
	for i, v := range vars {
		constants[i] = namedHash{hash: v.hash, name: v.name, size: v.size}
	}
	names, hashes, sizes, err := uniqueNames(constants)
	if err != nil {
		return fmt.Errorf("constants: %w", err)
	}
	s.constantNames, s.constantHashes = names, hashes
	s.staging = make([]UniqueConstant, len(names), len(names)+1)
	for i, size := range sizes {
		s.staging[i].StageSize = size
	}

	if s.srvNames, s.srvHashes, _, err = uniqueNames(bindingHashes(srvs)); err != nil {
		return fmt.Errorf("shader resources: %w", err)
	}
	if s.samplerNames, s.samplerHashes, _, err = uniqueNames(bindingHashes(samplers)); err != nil {
		return fmt.Errorf("samplers: %w", err)
	}
	return nil
}

func bindingHashes(refs []bindingRef) []namedHash {
	out := make([]namedHash, len(refs))
	for i, r := range refs {
		out[i] = namedHash{hash: r.hash, name: r.name}
	}
	return out
}

// uniqueNames sorts entries by hash and collapses equal hashes, keeping the widest size of each run.
func uniqueNames(entries []namedHash) ([]string, []uint32, []uint32, error) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].hash != entries[j].hash {
			return entries[i].hash < entries[j].hash
		}
		return entries[i].name < entries[j].name
	})

	var (
		names  []string
		hashes []uint32
		sizes  []uint32
	)
	for i := 0; i < len(entries); {
		first := entries[i]
		size := first.size
		j := i + 1
		for ; j < len(entries) && entries[j].hash == first.hash; j++ {
			if entries[j].name != first.name {
				return nil, nil, nil, fmt.Errorf("%w: %q and %q", ErrNameCollision, first.name, entries[j].name)
			}
			size = max(size, entries[j].size)
		}
		names = append(names, first.name)
		hashes = append(hashes, first.hash)
		sizes = append(sizes, size)
		i = j
	}
	return names, hashes, sizes, nil
}

// indexOfHash finds h in a sorted hash table. Every hash looked up during build is present.
func indexOfHash(hashes []uint32, h uint32) int {
	return sort.Search(len(hashes), func(i int) bool {
		return hashes[i] >= h
	})
}

// layoutStaging places every unique constant in name order and appends the zero-size dummy entry.
func (s *schema) layoutStaging(vars []variableRef) {
	var offset uint32
	for i := range s.staging {
		s.staging[i].StageOffset = offset
		offset += s.staging[i].StageSize
	}
	s.stagingSize = offset
	s.staging = append(s.staging, UniqueConstant{})

	for i := range vars {
		vars[i].unique = indexOfHash(s.constantHashes, vars[i].hash)
	}
}

// fuseConstantBuffers merges buffers whose variables match in unique name and offset, then compacts
// the survivors. It returns the unique buffer index of every declared buffer.
func (s *schema) fuseConstantBuffers(vars []variableRef, cbs []cbDesc) []int {
	for i := range cbs {
		for j := 0; j < i; j++ {
			if sameLayout(vars, cbs[i], cbs[j]) {
				cbs[i].merge = cbs[j].merge
				break
			}
		}
	}

	compact := make([]int, len(cbs))
	for i, cb := range cbs {
		size := common.AlignUp(16, cb.size)
		if cb.merge == i {
			compact[i] = len(s.cbSizes)
			s.cbSizes = append(s.cbSizes, size)
			s.cbNames = append(s.cbNames, cb.name)
			continue
		}
		u := compact[cb.merge]
		compact[i] = u
		s.cbSizes[u] = max(s.cbSizes[u], size)
	}
	return compact
}

func sameLayout(vars []variableRef, a, b cbDesc) bool {
	if a.varCount != b.varCount {
		return false
	}
	for k := 0; k < a.varCount; k++ {
		va, vb := vars[a.firstVar+k], vars[b.firstVar+k]
		if va.unique != vb.unique || va.offset != vb.offset {
			return false
		}
	}
	return true
}

// planMovements emits one copy per variable of every representative buffer. Copies are clamped to
// the space left in the fused buffer.
func (s *schema) planMovements(vars []variableRef, cbs []cbDesc, compact []int) {
	for i, cb := range cbs {
		if cb.merge != i {
			continue
		}
		u := compact[i]
		bufSize := s.cbSizes[u]
		for _, v := range vars[cb.firstVar : cb.firstVar+cb.varCount] {
			if v.offset >= bufSize {
				continue
			}
			uc := s.staging[v.unique]
			s.movements = append(s.movements, CBMovement{
				StageOffset:  uc.StageOffset,
				Size:         min(uc.StageSize, bufSize-v.offset),
				BufferIndex:  uint32(u),
				BufferOffset: v.offset,
			})
		}
	}
}

func (s *schema) resolveBindings(refs []bindingRef, hashes []uint32) []slotEntry {
	out := make([]slotEntry, len(refs))
	for i, r := range refs {
		out[i] = slotEntry{stage: r.stage, slot: r.slot, index: uint32(indexOfHash(hashes, r.hash))}
	}
	return out
}

// buildTable lays out, per present stage, one index per slot from 0 through the stage's highest
// used slot. Holes follow the schema's gap policy.
func (s *schema) buildTable(category Category, entries []slotEntry, sentinel uint32) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].stage != entries[j].stage {
			return entries[i].stage < entries[j].stage
		}
		return entries[i].slot < entries[j].slot
	})

	var flat []uint32
	for _, stage := range s.stages {
		start := uint32(len(flat))
		var run []slotEntry
		for _, e := range entries {
			if e.stage == stage {
				run = append(run, e)
			}
		}
		if len(run) > 0 {
			table := make([]uint32, run[len(run)-1].slot+1)
			for i := range table {
				table[i] = sentinel
			}
			for _, e := range run {
				table[e.slot] = e.index
			}
			if s.policy == SlotGapRepeatPrevious {
				prev := sentinel
				for i, idx := range table {
					if idx == sentinel {
						table[i] = prev
					} else {
						prev = idx
					}
				}
			}
			flat = append(flat, table...)
		}
		count := uint32(len(flat)) - start
		s.tables[category][stage] = stageTable{start: start, count: count}
		s.maxCounts[category] = max(s.maxCounts[category], count)
	}
	s.bindings[category] = flat
}
