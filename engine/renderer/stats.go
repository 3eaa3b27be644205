package renderer

import "log/slog"

// Stats counts the binding and submission work the renderer has done since creation.
type Stats struct {
	DrawCalls  uint64
	Dispatches uint64

	// SetCalls counts per-stage Set calls issued by resource sets.
	SetCalls uint64

	// ConstantUploads counts constant buffer uploads; UploadedBytes is their total size.
	ConstantUploads uint64
	UploadedBytes   uint64

	BindGroupsCreated  uint64
	BindGroupCacheHits uint64
	BindGroupsEvicted  uint64
	// BindGroupsLive is the number of bind groups currently cached.
	BindGroupsLive int
}

// LogValue groups the counters under short keys for slog.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("draws", s.DrawCalls),
		slog.Uint64("dispatches", s.Dispatches),
		slog.Uint64("setCalls", s.SetCalls),
		slog.Uint64("uploads", s.ConstantUploads),
		slog.Uint64("uploadBytes", s.UploadedBytes),
		slog.Uint64("bindGroupsCreated", s.BindGroupsCreated),
		slog.Uint64("bindGroupHits", s.BindGroupCacheHits),
		slog.Uint64("bindGroupsEvicted", s.BindGroupsEvicted),
		slog.Int("bindGroupsLive", s.BindGroupsLive),
	)
}

// Sub returns the counter deltas s - prev. BindGroupsLive is taken from s.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		DrawCalls:          s.DrawCalls - prev.DrawCalls,
		Dispatches:         s.Dispatches - prev.Dispatches,
		SetCalls:           s.SetCalls - prev.SetCalls,
		ConstantUploads:    s.ConstantUploads - prev.ConstantUploads,
		UploadedBytes:      s.UploadedBytes - prev.UploadedBytes,
		BindGroupsCreated:  s.BindGroupsCreated - prev.BindGroupsCreated,
		BindGroupCacheHits: s.BindGroupCacheHits - prev.BindGroupCacheHits,
		BindGroupsEvicted:  s.BindGroupsEvicted - prev.BindGroupsEvicted,
		BindGroupsLive:     s.BindGroupsLive,
	}
}
