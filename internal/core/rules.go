package core

// NewDefaultRulesEngine returns an engine with the standard roadmap rules
// registered: label format enforcement, link symmetry checks, and planned
// date roll-up checks.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(LabelFormatRule{})
	engine.Register(LinkSymmetryRule{})
	engine.Register(DateRollupRule{})
	return engine
}
