package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"gopkg.in/yaml.v3"
)

// LoaderBackendType identifies the asset file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeBinary selects the little-endian binary backend (.oxs skeletons, .oxc clips).
	BackendTypeBinary LoaderBackendType = iota

	// BackendTypeYAML selects the YAML backend (.yaml, .yml).
	BackendTypeYAML
)

var (
	// ErrUnsupportedFormat is returned when a path's extension maps to no backend.
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	// ErrInvalidSignature is returned when a binary asset does not start with the expected signature.
	ErrInvalidSignature = errors.New("invalid asset signature")
	// ErrUnsupportedVersion is returned when a binary asset has an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported asset version")
	// ErrCorruptAsset is returned when an asset is structurally unreadable.
	ErrCorruptAsset = errors.New("corrupt asset")
	// ErrInvalidManifest is returned when a model manifest is missing required entries.
	ErrInvalidManifest = errors.New("invalid model manifest")
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	verbose bool

	modelCache map[string]model.Model

	backends map[LoaderBackendType]loaderBackend
}

// Loader defines the public-facing interface for loading and caching animated models.
// It abstracts the asset file format behind a backend selected by file extension and manages a cache of previously
// loaded models. Every loaded asset is validated before it is returned, so malformed data fails here and never
// inside the frame loop.
type Loader interface {
	// LoadModel reads a YAML model manifest, loads the skeleton and clips it names and caches the result.
	// If the model is already cached (by manifest path), the cached version is returned.
	// Relative asset paths resolve against the manifest's directory.
	//
	// Parameters:
	//   - manifestPath: the file path to the manifest
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if any asset fails to load or validate
	LoadModel(manifestPath string) (model.Model, error)

	// LoadSkeleton reads and validates a skeleton asset. The backend is selected from the file extension.
	//
	// Parameters:
	//   - path: the file path to the skeleton asset
	//
	// Returns:
	//   - *skeleton.Skeleton: the loaded skeleton
	//   - error: error if loading or validation fails
	LoadSkeleton(path string) (*skeleton.Skeleton, error)

	// LoadClip reads and validates a clip asset. The backend is selected from the file extension.
	//
	// Parameters:
	//   - path: the file path to the clip asset
	//
	// Returns:
	//   - clip.Clip: the loaded clip
	//   - error: error if loading or validation fails
	LoadClip(path string) (clip.Clip, error)

	// LoadSkeletonReader reads and validates a skeleton asset from a stream.
	//
	// Parameters:
	//   - r: the reader providing asset data
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - *skeleton.Skeleton: the loaded skeleton
	//   - error: error if decoding or validation fails
	LoadSkeletonReader(r io.Reader, backendType LoaderBackendType) (*skeleton.Skeleton, error)

	// LoadClipReader reads and validates a clip asset from a stream.
	//
	// Parameters:
	//   - r: the reader providing asset data
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - clip.Clip: the loaded clip
	//   - error: error if decoding or validation fails
	LoadClipReader(r io.Reader, backendType LoaderBackendType) (clip.Clip, error)

	// SaveSkeleton writes a skeleton asset in the format selected by the file extension.
	//
	// Parameters:
	//   - path: the destination file path
	//   - s: the skeleton to write
	//
	// Returns:
	//   - error: error if writing fails
	SaveSkeleton(path string, s *skeleton.Skeleton) error

	// SaveClip writes a clip asset in the format selected by the file extension.
	//
	// Parameters:
	//   - path: the destination file path
	//   - c: the clip to write
	//
	// Returns:
	//   - error: error if writing fails
	SaveClip(path string, c clip.Clip) error

	// Get retrieves a cached model by key. Returns nil if not found.
	//
	// Parameters:
	//   - key: the cache key (manifest path) to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(key string) model.Model

	// Invalidate drops a model from the cache so the next LoadModel reads it from disk again.
	//
	// Parameters:
	//   - key: the cache key (manifest path)
	Invalidate(key string)

	// Watch loads the model at manifestPath and reloads it whenever the manifest or an asset it names changes
	// on disk. onReload receives the initial load and every reload; a failed reload reports its error and the
	// previously returned model stays usable. Watch blocks until ctx is cancelled.
	//
	// Parameters:
	//   - ctx: cancels the watch
	//   - manifestPath: the model manifest to watch
	//   - onReload: called with each load result
	//
	// Returns:
	//   - error: ctx.Err() once cancelled, or an error if the file watcher could not be started
	Watch(ctx context.Context, manifestPath string, onReload func(model.Model, error)) error

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by manifest path
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with both the binary and YAML backends registered and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]model.Model),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeBinary: newBinaryLoaderBackend(),
			BackendTypeYAML:   newYAMLLoaderBackend(),
		},
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadModel(manifestPath string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[manifestPath]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	manifest, err := readManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(manifestPath)
	skel, err := l.LoadSkeleton(resolvePath(dir, manifest.Skeleton))
	if err != nil {
		return nil, err
	}

	clips := make([]clip.Clip, 0, len(manifest.Clips))
	for _, p := range manifest.Clips {
		c, err := l.LoadClip(resolvePath(dir, p))
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}

	name := common.Coalesce(manifest.Name, strings.TrimSuffix(filepath.Base(manifestPath), filepath.Ext(manifestPath)))
	m, err := model.NewModel(model.WithName(name), model.WithSkeleton(skel), model.WithClips(clips...))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", manifestPath, err)
	}

	if l.verbose {
		log.Printf("[Loader] loaded model %q: %d bones, %d clips", name, skel.BoneCount(), len(clips))
	}

	l.mu.Lock()
	l.modelCache[manifestPath] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadSkeleton(path string) (*skeleton.Skeleton, error) {
	backendType, err := resolveBackend(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := l.LoadSkeletonReader(f, backendType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

func (l *loader) LoadClip(path string) (clip.Clip, error) {
	backendType, err := resolveBackend(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := l.LoadClipReader(f, backendType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return c, nil
}

func (l *loader) LoadSkeletonReader(r io.Reader, backendType LoaderBackendType) (*skeleton.Skeleton, error) {
	backend, err := l.backend(backendType)
	if err != nil {
		return nil, err
	}
	a, err := backend.DecodeSkeleton(r)
	if err != nil {
		return nil, err
	}
	return a.Build()
}

func (l *loader) LoadClipReader(r io.Reader, backendType LoaderBackendType) (clip.Clip, error) {
	backend, err := l.backend(backendType)
	if err != nil {
		return nil, err
	}
	a, err := backend.DecodeClip(r)
	if err != nil {
		return nil, err
	}
	return a.Build()
}

func (l *loader) SaveSkeleton(path string, s *skeleton.Skeleton) error {
	return l.save(path, func(b loaderBackend, w io.Writer) error {
		return b.EncodeSkeleton(w, NewSkeletonAsset(s))
	})
}

func (l *loader) SaveClip(path string, c clip.Clip) error {
	return l.save(path, func(b loaderBackend, w io.Writer) error {
		return b.EncodeClip(w, NewClipAsset(c))
	})
}

func (l *loader) Get(key string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[key]
}

func (l *loader) Invalidate(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.modelCache, key)
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	models := make(map[string]model.Model, len(l.modelCache))
	for k, m := range l.modelCache {
		models[k] = m
	}
	return models
}

func (l *loader) backend(backendType LoaderBackendType) (loaderBackend, error) {
	b, ok := l.backends[backendType]
	if !ok {
		return nil, fmt.Errorf("backend %d: %w", backendType, ErrUnsupportedFormat)
	}
	return b, nil
}

func (l *loader) save(path string, encode func(loaderBackend, io.Writer) error) error {
	backendType, err := resolveBackend(path)
	if err != nil {
		return err
	}
	backend, err := l.backend(backendType)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(backend, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// resolveBackend selects an appropriate loader backend based on the file extension.
func resolveBackend(path string) (LoaderBackendType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".oxs", ".oxc":
		return BackendTypeBinary, nil
	case ".yaml", ".yml":
		return BackendTypeYAML, nil
	default:
		return 0, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Skeleton == "" {
		return nil, fmt.Errorf("manifest %s: no skeleton: %w", path, ErrInvalidManifest)
	}
	return m, nil
}
