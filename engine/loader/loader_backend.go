package loader

import "io"

// loaderBackend defines the format-specific codec for skeleton and clip assets.
// Concrete implementations (binaryLoaderBackend, yamlLoaderBackend) handle the wire details; validation of the
// decoded content happens when the asset is built.
type loaderBackend interface {
	// DecodeSkeleton reads one skeleton asset.
	//
	// Parameters:
	//   - r: the reader providing asset data
	//
	// Returns:
	//   - *SkeletonAsset: the decoded asset
	//   - error: error if the stream is malformed
	DecodeSkeleton(r io.Reader) (*SkeletonAsset, error)

	// DecodeClip reads one clip asset.
	//
	// Parameters:
	//   - r: the reader providing asset data
	//
	// Returns:
	//   - *ClipAsset: the decoded asset
	//   - error: error if the stream is malformed
	DecodeClip(r io.Reader) (*ClipAsset, error)

	// EncodeSkeleton writes one skeleton asset.
	//
	// Parameters:
	//   - w: the destination writer
	//   - a: the asset to write
	//
	// Returns:
	//   - error: error if writing fails
	EncodeSkeleton(w io.Writer, a *SkeletonAsset) error

	// EncodeClip writes one clip asset.
	//
	// Parameters:
	//   - w: the destination writer
	//   - a: the asset to write
	//
	// Returns:
	//   - error: error if writing fails
	EncodeClip(w io.Writer, a *ClipAsset) error
}
