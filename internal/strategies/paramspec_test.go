package strategies

import "testing"

func TestResolvedChoicesFallsBackToDefault(t *testing.T) {
	p := ParamSpec{Name: "period", Default: 20}
	got := p.ResolvedChoices()
	if len(got) != 1 || got[0] != 20 {
		t.Fatalf("ResolvedChoices() = %v, want [20]", got)
	}
}

func TestResolvedChoicesPrefersExplicitChoices(t *testing.T) {
	p := ParamSpec{Name: "period", Default: 20, Choices: []float64{10, 20, 30}}
	got := p.ResolvedChoices()
	if len(got) != 3 || got[0] != 10 || got[2] != 30 {
		t.Fatalf("ResolvedChoices() = %v, want [10 20 30]", got)
	}
}

func TestResolveParamsMergesOverridesOverDefaults(t *testing.T) {
	specs := []ParamSpec{
		{Name: "a", Default: 1},
		{Name: "b", Default: 2},
	}
	resolved := resolveParams(specs, map[string]float64{"b": 99})
	if resolved["a"] != 1 {
		t.Fatalf("resolved[a] = %v, want 1", resolved["a"])
	}
	if resolved["b"] != 99 {
		t.Fatalf("resolved[b] = %v, want 99", resolved["b"])
	}
}
