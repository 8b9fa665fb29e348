package cipher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RowanDark/xorlab/internal/xorerr"
)

// ParsePipeline builds a pipeline from a compact step list such as
// "base64_decode|xor_repeating:key=ICE|printable:placeholder=.". Steps are
// separated by '|'; parameters follow a ':' as comma-separated key=value pairs
// and are passed to the operation as strings.
func ParsePipeline(spec string) (*Pipeline, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: pipeline has no steps", xorerr.ErrInvalidArgument)
	}

	pipeline := &Pipeline{Reversible: true}
	for i, step := range strings.Split(spec, "|") {
		name, rawParams, _ := strings.Cut(strings.TrimSpace(step), ":")
		name = strings.TrimSpace(name)
		op, err := Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if _, ok := op.Reverse(); !ok {
			pipeline.Reversible = false
		}

		cfg := OperationConfig{Name: name}
		if rawParams != "" {
			cfg.Parameters = make(map[string]interface{})
			for _, pair := range strings.Split(rawParams, ",") {
				key, value, ok := strings.Cut(pair, "=")
				key = strings.TrimSpace(key)
				if !ok || key == "" {
					return nil, fmt.Errorf("%w: step %d: parameter %q is not key=value", xorerr.ErrInvalidArgument, i, pair)
				}
				cfg.Parameters[key] = value
			}
		}
		pipeline.Operations = append(pipeline.Operations, cfg)
	}
	return pipeline, nil
}

// String renders the pipeline in the form ParsePipeline accepts.
func (p *Pipeline) String() string {
	steps := make([]string, 0, len(p.Operations))
	for _, op := range p.Operations {
		if len(op.Parameters) == 0 {
			steps = append(steps, op.Name)
			continue
		}
		keys := sortedKeys(op.Parameters)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, op.Parameters[k]))
		}
		steps = append(steps, op.Name+":"+strings.Join(pairs, ","))
	}
	return strings.Join(steps, "|")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
