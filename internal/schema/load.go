package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Schema kinds accepted by Load.
const (
	KindCUE        = "cue"
	KindJSONSchema = "jsonschema"
)

// KindOf infers the schema kind of path: directories and .cue files are
// CUE, .json files are JSON Schema.
func KindOf(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return KindCUE, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return KindCUE, nil
	case ".json":
		return KindJSONSchema, nil
	default:
		return "", fmt.Errorf("cannot infer schema kind of %s: use a .cue or .json file", path)
	}
}

// Load compiles the schema at path. An empty kind is inferred with KindOf.
// definition selects a CUE definition (for example "#Inn") and is ignored
// for JSON Schema.
func Load(kind, path, definition string, opts ...Option) (Validator, error) {
	if kind == "" {
		inferred, err := KindOf(path)
		if err != nil {
			return nil, err
		}
		kind = inferred
	}

	switch kind {
	case KindCUE:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return LoadCUEDir(path, definition, opts...)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		return CompileCUE(path, string(src), definition, opts...)

	case KindJSONSchema:
		doc, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		return CompileJSONSchema(filepath.Base(path), doc, opts...)

	default:
		return nil, fmt.Errorf("unknown schema kind %q: must be %s or %s", kind, KindCUE, KindJSONSchema)
	}
}
