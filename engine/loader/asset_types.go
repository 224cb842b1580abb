package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
)

// SkeletonAsset is the serialized form of a skeleton as written by the baking tool.
type SkeletonAsset struct {
	// BonesName holds the bone names in index order.
	BonesName []string `yaml:"bonesName"`
	// BonesParent holds the parent index of each bone, -1 for roots.
	BonesParent []int32 `yaml:"bonesParent"`
	// InvBindPose holds 7 floats (tx, ty, tz, qx, qy, qz, qw) per bone.
	InvBindPose []float32 `yaml:"invBindPose,flow"`
}

// ClipAsset is the serialized form of a baked animation clip as written by the baking tool.
type ClipAsset struct {
	// AnimName is the clip name.
	AnimName string `yaml:"animName"`
	// NodeCount is the number of bones the clip animates.
	NodeCount int32 `yaml:"nodeCount"`
	// Frequency is the spacing between keyframes in seconds.
	Frequency float32 `yaml:"frequency"`
	// Length is the clip duration in seconds.
	Length float32 `yaml:"length"`
	// Times holds the keyframe times in seconds.
	Times []float32 `yaml:"times,flow"`
	// Datas holds nodeCount * len(times) * 7 floats, bone-major.
	Datas []float32 `yaml:"datas,flow"`
}

// Manifest names the assets that make up one model. Relative paths resolve against the manifest's directory.
type Manifest struct {
	// Name is the model name. Defaults to the manifest file name without extension.
	Name string `yaml:"name"`
	// Skeleton is the path of the skeleton asset.
	Skeleton string `yaml:"skeleton"`
	// Clips are the paths of the clip assets, in clip index order.
	Clips []string `yaml:"clips"`
}

// NewSkeletonAsset converts a skeleton into its serialized form.
//
// Parameters:
//   - s: the skeleton to convert
//
// Returns:
//   - *SkeletonAsset: the serializable asset
func NewSkeletonAsset(s *skeleton.Skeleton) *SkeletonAsset {
	a := &SkeletonAsset{
		BonesName:   s.Names(),
		BonesParent: append([]int32(nil), s.Parents()...),
		InvBindPose: make([]float32, 0, s.BoneCount()*pose.Stride),
	}
	for _, t := range s.InverseBindPose() {
		a.InvBindPose = append(a.InvBindPose, t[:]...)
	}
	return a
}

// Build validates the asset and converts it into a Skeleton.
//
// Returns:
//   - *skeleton.Skeleton: the skeleton
//   - error: a wrapped error if the asset is invalid
func (a *SkeletonAsset) Build() (*skeleton.Skeleton, error) {
	return skeleton.NewSkeleton(
		skeleton.WithBones(a.BonesName, a.BonesParent),
		skeleton.WithInverseBindPose(a.InvBindPose),
	)
}

// NewClipAsset converts a clip into its serialized form.
//
// Parameters:
//   - c: the clip to convert
//
// Returns:
//   - *ClipAsset: the serializable asset
func NewClipAsset(c clip.Clip) *ClipAsset {
	return &ClipAsset{
		AnimName:  c.Name(),
		NodeCount: int32(c.BoneCount()),
		Frequency: c.Frequency(),
		Length:    c.Duration(),
		Times:     append([]float32(nil), c.Times()...),
		Datas:     append([]float32(nil), c.Data()...),
	}
}

// Build validates the asset and converts it into a Clip.
//
// Returns:
//   - clip.Clip: the clip
//   - error: a wrapped error if the asset is invalid
func (a *ClipAsset) Build() (clip.Clip, error) {
	if a.Times == nil {
		return nil, fmt.Errorf("clip %q: times missing: %w", a.AnimName, ErrCorruptAsset)
	}
	return clip.NewClip(a.AnimName,
		clip.WithDuration(a.Length),
		clip.WithFrequency(a.Frequency),
		clip.WithBoneCount(int(a.NodeCount)),
		clip.WithTimes(a.Times),
		clip.WithData(a.Datas),
	)
}
