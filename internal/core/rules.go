package core

// NewDefaultRulesEngine returns a rules engine loaded with the invariants the
// session store always enforces: progress bounds, terminal lifecycle stages,
// and monotonic like counters.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(ProgressBoundsRule())
	engine.Register(TerminalStageRule())
	engine.Register(LikeMonotonicRule())
	return engine
}
