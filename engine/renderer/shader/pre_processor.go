// pre_processor.go implements the skinning shader pre-processor. It scans WGSL source for @oxy: annotations,
// replaces them with the embedded DualQuat struct source or generated binding declarations, and collects a
// declarations list from which the animator's output binding is resolved.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
)

// registryEntry pairs a WGSL struct source string with the WGSL type name used in generated declarations.
type registryEntry struct {
	// Source is the raw WGSL struct definition text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations.
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations is reset at the start of each Process call.
	declarations []Annotation
}

// PreProcessor processes WGSL shader source containing @oxy: annotations.
type PreProcessor interface {
	// Process replaces @oxy: annotations with their WGSL output. @oxy:include annotations become the embedded
	// struct source, @oxy:group annotations become @group/@binding declarations and @oxy:provider annotations
	// produce no output. Group and provider annotations are recorded as declarations.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected by the most recent Process call,
	// in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation

	// OutputBinding finds where the animator's pose buffer is bound: the first group declaration of
	// array<dual_quat>, or the first animator_output provider.
	//
	// Returns:
	//   - int: the @group index
	//   - int: the @binding index
	//   - bool: false if the shader declares no pose buffer
	OutputBinding() (int, int, bool)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the DualQuat struct and the address space mappings registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgDualQuat: {Source: animator.GPUDualQuatSource, Type: "DualQuat"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			wgslType := p.structRegistry[elementType(a.Args[2])].Type
			if elementType(a.Args[2]) != a.Args[2] {
				wgslType = fmt.Sprintf("array<%s>", wgslType)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) OutputBinding() (int, int, bool) {
	for _, d := range p.declarations {
		switch {
		case d.Type == AnnotationTypeBindingGroup && d.Args[2] == "array<"+AnnotationArgDualQuat+">":
			return *d.Group, *d.Binding, true
		case d.Type == AnnotationTypeProvider && d.Args[0] == AnnotationArgAnimatorOutput:
			return *d.Group, *d.Binding, true
		}
	}
	return 0, 0, false
}
