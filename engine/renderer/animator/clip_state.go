package animator

// ClipState is one playing clip as chosen by the caller's animation state machine.
type ClipState struct {
	// ClipIndex is the model clip index, or -1 for no clip.
	ClipIndex int
	// NormalizedTime is the playback position in clip lengths. Values past 1 loop back to the clip start.
	NormalizedTime float32
	// Weight is the blend weight of the clip. Non-positive weights disable the clip.
	Weight float32
}

// NoClip is the ClipState of an empty layer.
var NoClip = ClipState{ClipIndex: -1}

// Playing reports whether the state names a clip with a positive weight.
//
// Returns:
//   - bool: true if the state contributes to the pose
func (s ClipState) Playing() bool {
	return s.ClipIndex >= 0 && s.Weight > 0
}
