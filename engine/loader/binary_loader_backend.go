package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
)

const (
	binaryVersion uint32 = 1

	// Length prefix limits. Arrays are additionally read in readChunk sized pieces, so a corrupt count fails
	// on EOF after allocating at most what the file actually holds.
	maxBinaryCount  = 1 << 26
	maxBinaryBones  = 1 << 16
	maxBinaryString = 1 << 16
	readChunk       = 1 << 14
)

var (
	skeletonSignature = [4]byte{'O', 'X', 'S', 'K'}
	clipSignature     = [4]byte{'O', 'X', 'C', 'L'}
)

// binaryHeader prefixes every binary asset.
type binaryHeader struct {
	Signature [4]byte
	Version   uint32
}

// clipScalars is the fixed-size block following a clip's name.
type clipScalars struct {
	NodeCount int32
	Frequency float32
	Length    float32
}

// binaryLoaderBackendImpl reads and writes the little-endian binary asset format (.oxs skeletons, .oxc clips).
//
// Skeleton layout: header, bone count (u32), per bone a length-prefixed name, bone count parents (i32),
// bone count * 7 inverse bind pose floats.
// Clip layout: header, length-prefixed name, node count (i32), frequency (f32), length (f32), length-prefixed times,
// length-prefixed sample data.
type binaryLoaderBackendImpl struct{}

var _ loaderBackend = &binaryLoaderBackendImpl{}

// newBinaryLoaderBackend creates a new binary loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for .oxs/.oxc files
func newBinaryLoaderBackend() loaderBackend {
	return &binaryLoaderBackendImpl{}
}

func (b *binaryLoaderBackendImpl) DecodeSkeleton(r io.Reader) (*SkeletonAsset, error) {
	br := bufio.NewReader(r)
	if err := readHeader(br, skeletonSignature); err != nil {
		return nil, err
	}

	count, err := readCount(br, maxBinaryBones)
	if err != nil {
		return nil, fmt.Errorf("failed to read bone count: %w", err)
	}

	a := &SkeletonAsset{BonesName: make([]string, 0, min(count, readChunk))}
	for i := range count {
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read bone %d name: %w", i, err)
		}
		a.BonesName = append(a.BonesName, name)
	}
	if a.BonesParent, err = readChunked[int32](br, count); err != nil {
		return nil, fmt.Errorf("failed to read bone parents: %w", err)
	}
	if a.InvBindPose, err = readChunked[float32](br, count*pose.Stride); err != nil {
		return nil, fmt.Errorf("failed to read inverse bind pose: %w", err)
	}
	return a, nil
}

func (b *binaryLoaderBackendImpl) DecodeClip(r io.Reader) (*ClipAsset, error) {
	br := bufio.NewReader(r)
	if err := readHeader(br, clipSignature); err != nil {
		return nil, err
	}

	name, err := readString(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip name: %w", err)
	}
	var scalars clipScalars
	if err := binary.Read(br, binary.LittleEndian, &scalars); err != nil {
		return nil, fmt.Errorf("failed to read clip %q header: %w", name, err)
	}
	times, err := readFloats(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip %q times: %w", name, err)
	}
	datas, err := readFloats(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip %q data: %w", name, err)
	}

	return &ClipAsset{
		AnimName:  name,
		NodeCount: scalars.NodeCount,
		Frequency: scalars.Frequency,
		Length:    scalars.Length,
		Times:     times,
		Datas:     datas,
	}, nil
}

func (b *binaryLoaderBackendImpl) EncodeSkeleton(w io.Writer, a *SkeletonAsset) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, binaryHeader{Signature: skeletonSignature, Version: binaryVersion}); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(a.BonesName))); err != nil {
		return err
	}
	for _, name := range a.BonesName {
		if err := writeString(bw, name); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, a.BonesParent); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, a.InvBindPose); err != nil {
		return err
	}
	return bw.Flush()
}

func (b *binaryLoaderBackendImpl) EncodeClip(w io.Writer, a *ClipAsset) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, binaryHeader{Signature: clipSignature, Version: binaryVersion}); err != nil {
		return err
	}
	if err := writeString(bw, a.AnimName); err != nil {
		return err
	}
	scalars := clipScalars{NodeCount: a.NodeCount, Frequency: a.Frequency, Length: a.Length}
	if err := binary.Write(bw, binary.LittleEndian, scalars); err != nil {
		return err
	}
	if err := writeFloats(bw, a.Times); err != nil {
		return err
	}
	if err := writeFloats(bw, a.Datas); err != nil {
		return err
	}
	return bw.Flush()
}

func readHeader(r io.Reader, want [4]byte) error {
	var header binaryHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if header.Signature != want {
		return fmt.Errorf("got %q, want %q: %w", header.Signature[:], want[:], ErrInvalidSignature)
	}
	if header.Version != binaryVersion {
		return fmt.Errorf("version %d: %w", header.Version, ErrUnsupportedVersion)
	}
	return nil
}

func readCount(r io.Reader, limit uint32) (int, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n > limit {
		return 0, fmt.Errorf("length prefix %d: %w", n, ErrCorruptAsset)
	}
	return int(n), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readCount(r, maxBinaryString)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readFloats(r io.Reader) ([]float32, error) {
	n, err := readCount(r, maxBinaryCount)
	if err != nil {
		return nil, err
	}
	return readChunked[float32](r, n)
}

// readChunked decodes n little-endian values, growing the result one chunk at a time.
func readChunked[T int32 | float32](r io.Reader, n int) ([]T, error) {
	out := make([]T, 0, min(n, readChunk))
	chunk := make([]T, min(n, readChunk))
	for len(out) < n {
		c := chunk[:min(n-len(out), len(chunk))]
		if err := binary.Read(r, binary.LittleEndian, c); err != nil {
			return nil, err
		}
		out = append(out, c...)
	}
	return out, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeFloats(w io.Writer, v []float32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(v))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v)
}
