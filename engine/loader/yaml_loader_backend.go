package loader

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlLoaderBackendImpl reads and writes the human-readable YAML asset format (.yaml/.yml). Field names follow the
// asset contract (bonesName, bonesParent, invBindPose, animName, nodeCount, frequency, length, times, datas).
type yamlLoaderBackendImpl struct{}

var _ loaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for .yaml/.yml files
func newYAMLLoaderBackend() loaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) DecodeSkeleton(r io.Reader) (*SkeletonAsset, error) {
	a := &SkeletonAsset{}
	if err := yaml.NewDecoder(r).Decode(a); err != nil {
		return nil, fmt.Errorf("failed to decode skeleton: %w", err)
	}
	return a, nil
}

func (b *yamlLoaderBackendImpl) DecodeClip(r io.Reader) (*ClipAsset, error) {
	a := &ClipAsset{}
	if err := yaml.NewDecoder(r).Decode(a); err != nil {
		return nil, fmt.Errorf("failed to decode clip: %w", err)
	}
	return a, nil
}

func (b *yamlLoaderBackendImpl) EncodeSkeleton(w io.Writer, a *SkeletonAsset) error {
	return encodeYAML(w, a)
}

func (b *yamlLoaderBackendImpl) EncodeClip(w io.Writer, a *ClipAsset) error {
	return encodeYAML(w, a)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
