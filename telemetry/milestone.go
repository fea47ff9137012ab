package telemetry

// Milestone kinds recorded to milestones.csv.
const (
	MilestoneFirstFinisher = "first_finisher"
	MilestoneNewBest       = "new_best"
)

// Milestone marks a notable moment in a run, useful when scanning long
// experiments for the interesting generations.
type Milestone struct {
	Generation int     `csv:"generation"`
	Kind       string  `csv:"kind"`
	Value      float64 `csv:"value"`
	Timestamp  string  `csv:"timestamp"`
}
