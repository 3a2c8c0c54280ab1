package tracker

// These types mirror the JSON documents served by the topology tracker for a
// single running topology.  The logical plan describes the declared dataflow
// at the component level, the physical plan describes where the concrete
// instances of those components are running.

type SpoutSpecJson struct {
	SpoutType   string `json:"spout_type"`
	SpoutSource string `json:"spout_source"`
}

type StreamInputJson struct {
	ComponentName string `json:"component_name"`
	StreamName    string `json:"stream_name"`
	Grouping      string `json:"grouping"`
}

type BoltSpecJson struct {
	Inputs []StreamInputJson `json:"inputs"`
}

type LogicalPlan struct {
	Spouts map[string]SpoutSpecJson `json:"spouts"`
	Bolts  map[string]BoltSpecJson  `json:"bolts"`
}

type StmgrJson struct {
	ID        string `json:"id"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	ShellPort int    `json:"shell_port"`
}

type InstancePlacementJson struct {
	StmgrID string `json:"stmgrId"`
}

type PhysicalPlan struct {
	Stmgrs    map[string]StmgrJson             `json:"stmgrs"`
	Spouts    map[string][]string              `json:"spouts"`
	Bolts     map[string][]string              `json:"bolts"`
	Instances map[string]InstancePlacementJson `json:"instances"`
}
