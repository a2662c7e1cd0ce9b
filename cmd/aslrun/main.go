// Command aslrun loads a workflow definition and input document, runs it to
// completion or suspension, and prints the outcome.
//
// Following the teacher's examples/*/main.go convention, flags are parsed
// with the standard library's flag package (no cobra), and diagnostics go
// through "log" rather than a structured logger — the engine package
// itself never logs (§A.1).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/asl-engine/asl"
)

func main() {
	definitionPath := flag.String("definition", "", "path to a workflow definition (.json or .yaml)")
	inputPath := flag.String("input", "", "path to the input document (.json); defaults to {}")
	resumeToken := flag.String("resume", "", "resume token of a suspended execution; Runner.Resume knows only tokens recorded by the same Runner, so a token from an earlier aslrun process is reported as unknown")
	resumePayload := flag.String("resume-payload", "", "path to the resume payload (.json) when -resume is set")
	timeout := flag.Duration("timeout", 0, "overall run timeout; 0 means no timeout")
	flag.Parse()

	if *definitionPath == "" {
		log.Fatal("aslrun: -definition is required")
	}

	def, err := loadDefinition(*definitionPath)
	if err != nil {
		log.Fatalf("aslrun: load definition: %v", err)
	}

	if errs := asl.Validate(def); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("aslrun: validation error: %v", e)
		}
		log.Fatalf("aslrun: definition failed validation (%d error(s))", len(errs))
	}

	runner, err := asl.NewRunner(def, nil, nil, nil)
	if err != nil {
		log.Fatalf("aslrun: compile definition: %v", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	var outcome asl.Outcome
	if *resumeToken != "" {
		payload := asl.EmptyObject()
		if *resumePayload != "" {
			payload, err = loadJSONValue(*resumePayload)
			if err != nil {
				log.Fatalf("aslrun: load resume payload: %v", err)
			}
		}
		outcome, err = runner.Resume(ctx, *resumeToken, payload)
		if err != nil {
			log.Fatalf("aslrun: resume: %v", err)
		}
	} else {
		input := asl.EmptyObject()
		if *inputPath != "" {
			input, err = loadJSONValue(*inputPath)
			if err != nil {
				log.Fatalf("aslrun: load input: %v", err)
			}
		}
		outcome = runner.Run(ctx, input)
	}

	printOutcome(outcome)
	if outcome.Status == asl.StatusFailed {
		os.Exit(1)
	}
}

// loadDefinition reads path and parses it as a workflow definition,
// converting YAML to the canonical JSON form first when the extension
// suggests YAML (the wire format is JSON per §6.4; YAML is a convenience
// aslrun offers the same way every example CLI in the pack does).
func loadDefinition(path string) (*asl.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isYAMLPath(path) {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("convert YAML to JSON: %w", err)
		}
	}

	return asl.ParseDefinition(data)
}

func loadJSONValue(path string) (asl.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return asl.Value{}, err
	}
	var v asl.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return asl.Value{}, err
	}
	return v, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML recursively walks a decoded YAML document. yaml.v3 decodes
// mappings with string keys as map[string]any but mappings with non-string
// keys as map[interface{}]interface{}; the latter are converted to
// map[string]any (keys formatted with fmt.Sprint) so json.Marshal accepts
// them.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return val
	}
}

func printOutcome(o asl.Outcome) {
	fmt.Printf("status: %s\n", o.Status)
	if o.Status == asl.StatusSuspended {
		if o.PendingApproval != "" {
			fmt.Printf("pending approval token: %s\n", o.PendingApproval)
		}
		if o.CheckpointID != "" {
			fmt.Printf("checkpoint id: %s\n", o.CheckpointID)
		}
	}

	out, err := json.MarshalIndent(jsonableValue(o.Output), "", "  ")
	if err != nil {
		log.Printf("aslrun: marshal output: %v", err)
	} else {
		fmt.Printf("output: %s\n", out)
	}

	fmt.Printf("usage: tokens=%d cost_usd=%.4f invocations=%d\n",
		o.Usage.TotalTokens, o.Usage.TotalCostUSD, o.Usage.InvocationCount)
}

func jsonableValue(v asl.Value) any {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil
	}
	var out any
	_ = json.Unmarshal(raw, &out)
	return out
}
