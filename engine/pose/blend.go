package pose

// Layer is one weighted sample request fed to Blend.
type Layer struct {
	// Sampler is the clip to sample, or nil when the layer is absent.
	Sampler Sampler
	// Time is the query time in seconds, already wrapped into the clip's duration.
	Time float32
	// Weight is the blend weight. Layers with a non-positive weight do not contribute.
	Weight float32
}

// Active reports whether the layer contributes to a blend.
//
// Returns:
//   - bool: true if the layer has a sampler and a positive weight
func (l Layer) Active() bool {
	return l.Sampler != nil && l.Weight > 0
}

// Blend samples up to two layers and writes the blended local pose into the arena's working pose.
//
// A single active layer is sampled straight into the working pose. When both are active each is sampled into its
// own scratch buffer and the weights are normalized to sum to 1 before a per-channel weighted sum. The root bone
// (index 0) is excluded from that sum and always takes the current layer's sample. When neither layer is active
// nothing is written and ok is false; the caller should keep its previous output.
//
// Parameters:
//   - current: the layer of the clip currently playing
//   - next: the layer of the clip being transitioned to
//   - mode: the interpolation mode passed to both samplers
//   - a: the arena providing the scratch buffers
//   - boneCount: the number of bones to produce
//
// Returns:
//   - []Transform7: the blended local pose, a view into the arena
//   - bool: false if neither layer is active
func Blend(current, next Layer, mode Interpolation, a *Arena, boneCount int) ([]Transform7, bool) {
	out := a.local[:boneCount]
	curActive, nextActive := current.Active(), next.Active()

	switch {
	case curActive && nextActive:
		cur := a.current[:boneCount]
		nxt := a.next[:boneCount]
		current.Sampler.Evaluate(current.Time, cur, mode)
		next.Sampler.Evaluate(next.Time, nxt, mode)

		total := current.Weight + next.Weight
		wc := current.Weight / total
		wn := next.Weight / total

		out[0] = cur[0]
		for i := 1; i < boneCount; i++ {
			for ch := range Stride {
				out[i][ch] = cur[i][ch]*wc + nxt[i][ch]*wn
			}
		}
		return out, true
	case curActive:
		current.Sampler.Evaluate(current.Time, out, mode)
		return out, true
	case nextActive:
		next.Sampler.Evaluate(next.Time, out, mode)
		return out, true
	default:
		return nil, false
	}
}
