package shader

import (
	"fmt"
	"strings"
	"sync"
)

// annotationPrefix marks a pre-processor directive inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// maxIncludeDepth bounds nested includes; deeper nesting is reported as a cycle.
const maxIncludeDepth = 8

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	mu *sync.Mutex

	// snippets maps include names to the WGSL text they expand to.
	snippets map[string]string

	// included records the include names expanded by the most recent Process call, in source order.
	included []string
}

// PreProcessor expands `//@oxy:include <name>` lines into registered WGSL snippets. Any other
// line passes through unchanged. A PreProcessor may be shared between shaders.
type PreProcessor interface {
	// Register adds or replaces a named snippet.
	//
	// Parameters:
	//   - name: the include name used after @oxy:include
	//   - source: the WGSL text the include expands to; it may itself contain includes
	Register(name, source string)

	// Process expands every include in source.
	//
	// Parameters:
	//   - source: WGSL source that may contain @oxy:include lines
	//
	// Returns:
	//   - string: the expanded source
	//   - error: ErrMalformedAnnotation or ErrUnknownInclude with the offending line number
	Process(source string) (string, error)

	// Included returns the include names expanded by the most recent Process call.
	//
	// Returns:
	//   - []string: include names in expansion order
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor with no registered snippets.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		mu:       &sync.Mutex{},
		snippets: make(map[string]string),
	}
}

func (p *preProcessor) Register(name, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snippets[name] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.included = p.included[:0]
	return p.expand(source, 0)
}

func (p *preProcessor) expand(source string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("%w: includes nested deeper than %d", ErrMalformedAnnotation, maxIncludeDepth)
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		directive, arg, ok := parseAnnotation(line)
		if !ok {
			out = append(out, line)
			continue
		}

		switch directive {
		case "include":
			if arg == "" {
				return "", fmt.Errorf("line %d: %w: @oxy:include needs a name", i+1, ErrMalformedAnnotation)
			}
			snippet, found := p.snippets[arg]
			if !found {
				return "", fmt.Errorf("line %d: %w %q", i+1, ErrUnknownInclude, arg)
			}
			p.included = append(p.included, arg)
			expanded, err := p.expand(snippet, depth+1)
			if err != nil {
				return "", fmt.Errorf("include %q: %w", arg, err)
			}
			out = append(out, expanded)
		default:
			return "", fmt.Errorf("line %d: %w: unknown directive %q", i+1, ErrMalformedAnnotation, directive)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.included...)
}

// parseAnnotation recognises a line of the form `//@oxy:<directive> [arg]`.
func parseAnnotation(line string) (directive, arg string, ok bool) {
	trimmed := strings.TrimSpace(line)
	rest, found := strings.CutPrefix(trimmed, "//")
	if !found {
		return "", "", false
	}
	rest, found = strings.CutPrefix(strings.TrimSpace(rest), annotationPrefix)
	if !found {
		return "", "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", true
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return fields[0], arg, true
}
