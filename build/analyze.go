package build

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
)

// metafile mirrors the parts of esbuild's metafile JSON the analysis reads.
type metafile struct {
	Inputs  map[string]metafileInput  `json:"inputs"`
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []metafileImport `json:"imports"`
}

type metafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

type metafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]inputContrib `json:"inputs"`
	Imports    []metafileImport        `json:"imports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

type inputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// AnalysisResult is the size breakdown of one bundled artifact.
type AnalysisResult struct {
	Output          string
	TotalBytes      int
	Inputs          []InputAnalysis
	ExternalImports []string
}

// InputAnalysis is one source module's share of the artifact.
type InputAnalysis struct {
	Path          string
	Bytes         int
	BytesInOutput int
	Percentage    float64
	ImportCount   int
}

// Analyze reads an esbuild metafile and reports how much each input
// contributes to the artifact. Paths are shown relative to root.
func Analyze(raw string, root string) (*AnalysisResult, error) {
	var meta metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	// Single entry point, so the first JS output is the artifact. Map order
	// is random, pick deterministically.
	var outputName string
	for name, out := range meta.Outputs {
		if out.EntryPoint == "" {
			continue
		}
		if outputName == "" || name < outputName {
			outputName = name
		}
	}
	if outputName == "" {
		return nil, fmt.Errorf("metafile has no entry point output")
	}
	output := meta.Outputs[outputName]

	result := &AnalysisResult{
		Output:     relTo(root, outputName),
		TotalBytes: output.Bytes,
	}

	seen := make(map[string]bool)
	for _, imp := range output.Imports {
		if imp.External && !seen[imp.Path] {
			seen[imp.Path] = true
			result.ExternalImports = append(result.ExternalImports, imp.Path)
		}
	}

	for inputPath, contrib := range output.Inputs {
		input, ok := meta.Inputs[inputPath]
		if !ok {
			continue
		}
		percentage := 0.0
		if result.TotalBytes > 0 {
			percentage = float64(contrib.BytesInOutput) / float64(result.TotalBytes) * 100
		}
		result.Inputs = append(result.Inputs, InputAnalysis{
			Path:          relTo(root, inputPath),
			Bytes:         input.Bytes,
			BytesInOutput: contrib.BytesInOutput,
			Percentage:    percentage,
			ImportCount:   len(input.Imports),
		})
	}

	sort.Slice(result.Inputs, func(i, j int) bool {
		if result.Inputs[i].BytesInOutput != result.Inputs[j].BytesInOutput {
			return result.Inputs[i].BytesInOutput > result.Inputs[j].BytesInOutput
		}
		return result.Inputs[i].Path < result.Inputs[j].Path
	})
	sort.Strings(result.ExternalImports)

	return result, nil
}

// metafile paths are relative to the working directory already; absolute
// ones are made relative when they sit under root.
func relTo(root, p string) string {
	if !filepath.IsAbs(p) || root == "" {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
