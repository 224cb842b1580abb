package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	s, err := skeleton.NewSkeleton(
		skeleton.WithBones([]string{"root", "spine", "head"}, []int32{-1, 0, 1}),
		skeleton.WithInverseBindPose([]float32{
			0, 0, 0, 0, 0, 0, 1,
			0, -1, 0, 0, 0, 0, 1,
			0, -2, 0, 0, 0.7071068, 0, 0.7071068,
		}),
	)
	require.NoError(t, err)
	return s
}

func testClip(t *testing.T, name string, bones int) clip.Clip {
	t.Helper()
	tracks := make([][]pose.Transform7, bones)
	for b := range tracks {
		tracks[b] = []pose.Transform7{
			{float32(b), 0, 0, 0, 0, 0, 1},
			{float32(b), 0.5, 0, 0, 0, 0, 1},
			{float32(b), 1, 0, 0, 0.6, 0, 0.8},
		}
	}
	c, err := clip.NewClip(name, clip.WithDuration(1), clip.WithFrequency(0.5), clip.WithTracks(tracks))
	require.NoError(t, err)
	return c
}

func TestSkeletonRoundTrip(t *testing.T) {
	for _, ext := range []string{".oxs", ".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			l := NewLoader()
			want := testSkeleton(t)
			path := filepath.Join(t.TempDir(), "rig"+ext)

			require.NoError(t, l.SaveSkeleton(path, want))
			got, err := l.LoadSkeleton(path)
			require.NoError(t, err)

			assert.Equal(t, want.Bones(), got.Bones())
			assert.Equal(t, want.Parents(), got.Parents())
			assert.Equal(t, want.InverseBindPose(), got.InverseBindPose())
		})
	}
}

func TestClipRoundTrip(t *testing.T) {
	for _, ext := range []string{".oxc", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			l := NewLoader()
			want := testClip(t, "wave", 3)
			path := filepath.Join(t.TempDir(), "wave"+ext)

			require.NoError(t, l.SaveClip(path, want))
			got, err := l.LoadClip(path)
			require.NoError(t, err)

			assert.Equal(t, want.Name(), got.Name())
			assert.Equal(t, want.Duration(), got.Duration())
			assert.Equal(t, want.Frequency(), got.Frequency())
			assert.Equal(t, want.BoneCount(), got.BoneCount())
			assert.Equal(t, want.Times(), got.Times())
			assert.Equal(t, want.Data(), got.Data())
		})
	}
}

func TestLoadClipReaderYAMLContract(t *testing.T) {
	doc := `
animName: nod
nodeCount: 1
frequency: 1
length: 1
times: [0, 1]
datas: [0, 0, 0, 0, 0, 0, 1, 2, 0, 0, 0, 0, 0, 1]
`
	c, err := NewLoader().LoadClipReader(bytes.NewBufferString(doc), BackendTypeYAML)
	require.NoError(t, err)
	assert.Equal(t, "nod", c.Name())
	assert.Equal(t, 2, c.KeyframeCount())
	assert.Equal(t, pose.Transform7{2, 0, 0, 0, 0, 0, 1}, c.Keyframe(0, 1))
}

func TestLoadSkeletonReaderYAMLContract(t *testing.T) {
	doc := `
bonesName: [hips, chest]
bonesParent: [-1, 0]
invBindPose: [0, 0, 0, 0, 0, 0, 1, 0, -1, 0, 0, 0, 0, 1]
`
	s, err := NewLoader().LoadSkeletonReader(bytes.NewBufferString(doc), BackendTypeYAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"hips", "chest"}, s.Names())
	assert.Equal(t, pose.Transform7{0, -1, 0, 0, 0, 0, 1}, s.InverseBindPose()[1])
}

func TestLoadValidatesContent(t *testing.T) {
	doc := `
animName: short
nodeCount: 2
frequency: 1
length: 1
times: [0, 1]
datas: [0, 0, 0, 0, 0, 0, 1]
`
	_, err := NewLoader().LoadClipReader(bytes.NewBufferString(doc), BackendTypeYAML)
	require.ErrorIs(t, err, clip.ErrDataLength)

	doc = `
bonesName: [a, b]
bonesParent: [1, -1]
`
	_, err = NewLoader().LoadSkeletonReader(bytes.NewBufferString(doc), BackendTypeYAML)
	require.ErrorIs(t, err, skeleton.ErrParentOrder)

	doc = `
animName: timeless
nodeCount: 1
frequency: 1
length: 0
datas: [0, 0, 0, 0, 0, 0, 1]
`
	_, err = NewLoader().LoadClipReader(bytes.NewBufferString(doc), BackendTypeYAML)
	require.ErrorIs(t, err, ErrCorruptAsset)
}

func TestBinaryDecodeErrors(t *testing.T) {
	l := NewLoader()

	var skel bytes.Buffer
	require.NoError(t, newBinaryLoaderBackend().EncodeSkeleton(&skel, NewSkeletonAsset(testSkeleton(t))))
	raw := skel.Bytes()

	t.Run("clip signature on skeleton", func(t *testing.T) {
		_, err := l.LoadClipReader(bytes.NewReader(raw), BackendTypeBinary)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint32(bad[4:8], 99)
		_, err := l.LoadSkeletonReader(bytes.NewReader(bad), BackendTypeBinary)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("huge bone count", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint32(bad[8:12], 0xFFFFFFFF)
		_, err := l.LoadSkeletonReader(bytes.NewReader(bad), BackendTypeBinary)
		require.ErrorIs(t, err, ErrCorruptAsset)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := l.LoadSkeletonReader(bytes.NewReader(raw[:len(raw)-3]), BackendTypeBinary)
		require.Error(t, err)
	})

	t.Run("bone count past the bone limit", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint32(bad[8:12], maxBinaryBones+1)
		_, err := l.LoadSkeletonReader(bytes.NewReader(bad), BackendTypeBinary)
		require.ErrorIs(t, err, ErrCorruptAsset)
	})
}

// allocatedBytes reports how many bytes fn allocated on the heap.
func allocatedBytes(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestBinaryDecodeBoundsAllocationByFileSize(t *testing.T) {
	backend := newBinaryLoaderBackend()

	t.Run("skeleton", func(t *testing.T) {
		var raw bytes.Buffer
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, binaryHeader{Signature: skeletonSignature, Version: binaryVersion}))
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, uint32(maxBinaryBones)))
		for range maxBinaryBones {
			require.NoError(t, writeString(&raw, ""))
		}

		var err error
		n := allocatedBytes(func() { _, err = backend.DecodeSkeleton(bytes.NewReader(raw.Bytes())) })
		require.Error(t, err, "parents and bind poses are missing")
		assert.Less(t, n, uint64(8<<20))
	})

	t.Run("clip data", func(t *testing.T) {
		var raw bytes.Buffer
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, binaryHeader{Signature: clipSignature, Version: binaryVersion}))
		require.NoError(t, writeString(&raw, "huge"))
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, clipScalars{NodeCount: 1, Frequency: 1, Length: 1}))
		require.NoError(t, writeFloats(&raw, []float32{0, 1}))
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, uint32(maxBinaryCount)))

		var err error
		n := allocatedBytes(func() { _, err = backend.DecodeClip(bytes.NewReader(raw.Bytes())) })
		require.Error(t, err)
		assert.Less(t, n, uint64(8<<20))
	})
}

func TestUnsupportedFormat(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadClip("walk.fbx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	require.ErrorIs(t, l.SaveSkeleton(filepath.Join(t.TempDir(), "rig.json"), testSkeleton(t)), ErrUnsupportedFormat)
	_, err = l.LoadClipReader(bytes.NewReader(nil), LoaderBackendType(42))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "clips"), 0o755))

	l := NewLoader(WithVerbose(true))
	require.NoError(t, l.SaveSkeleton(filepath.Join(dir, "rig.oxs"), testSkeleton(t)))
	require.NoError(t, l.SaveClip(filepath.Join(dir, "clips", "idle.oxc"), testClip(t, "idle", 3)))
	require.NoError(t, l.SaveClip(filepath.Join(dir, "clips", "run.yaml"), testClip(t, "run", 3)))

	path := writeManifest(t, dir, "knight.yaml", `
skeleton: rig.oxs
clips:
  - clips/idle.oxc
  - clips/run.yaml
`)

	m, err := l.LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "knight", m.Name())
	assert.Equal(t, 3, m.Skeleton().BoneCount())
	assert.Equal(t, []string{"idle", "run"}, m.ClipNames())
	assert.Equal(t, 1, m.ClipIndex("run"))

	again, err := l.LoadModel(path)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, m, l.Get(path))
	assert.Len(t, l.Models(), 1)
	assert.Nil(t, l.Get("missing"))
}

func TestLoadModelRejectsMismatchedClip(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader()
	require.NoError(t, l.SaveSkeleton(filepath.Join(dir, "rig.yaml"), testSkeleton(t)))
	require.NoError(t, l.SaveClip(filepath.Join(dir, "tail.oxc"), testClip(t, "tail", 4)))

	path := writeManifest(t, dir, "m.yaml", "name: broken\nskeleton: rig.yaml\nclips: [tail.oxc]\n")
	_, err := l.LoadModel(path)
	require.ErrorIs(t, err, model.ErrClipBoneCount)
	assert.Empty(t, l.Models())
}

func TestLoadModelRejectsManifestWithoutSkeleton(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "m.yaml", "name: empty\nclips: []\n")
	_, err := NewLoader().LoadModel(path)
	require.ErrorIs(t, err, ErrInvalidManifest)
}

func TestWithModelPrepopulatesCache(t *testing.T) {
	m, err := model.NewModel(model.WithName("prebuilt"), model.WithSkeleton(testSkeleton(t)))
	require.NoError(t, err)

	l := NewLoader(WithModel("prebuilt.yaml", m))
	got, err := l.LoadModel("prebuilt.yaml")
	require.NoError(t, err)
	assert.Same(t, m, got)
}
