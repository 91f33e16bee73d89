package domain

// SourceRecord is one recorded source of a target.
type SourceRecord struct {
	Name string
	Time Ftime
}

// TargetRecord is the persisted build state of one target.
type TargetRecord struct {
	Name    string
	Cfg     string
	RuleID  uint32
	Sources []SourceRecord
}

// State is the content of the state file.
type State struct {
	Algo    TsAlgo
	Targets []TargetRecord
}
