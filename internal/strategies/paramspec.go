// Package strategies implements the strategy runtime: the subscriber
// that filters bars, drives indicators, emits BarProcessed, invokes
// user logic, and tracks orders and positions (spec.md §4.4). Grounded
// in full on original_source/src/onesecondtrader/strategies/base.py.
package strategies

// ParamSpec describes one configurable strategy parameter: its default,
// optional numeric bounds/step, and optional choice set. Exposed as a
// plain data structure (rather than relying on runtime attribute
// discovery) per spec.md §9 DESIGN NOTES on parameter introspection.
type ParamSpec struct {
	Name    string
	Default float64
	Min     *float64
	Max     *float64
	Step    *float64
	Choices []float64
}

// ResolvedChoices returns Choices if set, otherwise a single-element
// slice containing Default — mirroring the source's
// resolved_choices property, used by parameter-sweep tooling.
func (p ParamSpec) ResolvedChoices() []float64 {
	if len(p.Choices) > 0 {
		return p.Choices
	}
	return []float64{p.Default}
}

// resolveParams merges defaults with caller-supplied overrides into a
// flat name->value map, becoming ordinary attributes on the strategy
// (spec.md §4.4 Configuration).
func resolveParams(specs []ParamSpec, overrides map[string]float64) map[string]float64 {
	resolved := make(map[string]float64, len(specs))
	for _, s := range specs {
		resolved[s.Name] = s.Default
	}
	for name, v := range overrides {
		resolved[name] = v
	}
	return resolved
}
