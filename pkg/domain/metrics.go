package domain

// Counts tallies each symbol class of a grid.
type Counts struct {
	Pos  int `json:"pos"`
	Neg  int `json:"neg"`
	Zero int `json:"zero"`
}

// Total returns pos+neg+zero, which always equals N*N for a grid's counts.
func (c Counts) Total() int { return c.Pos + c.Neg + c.Zero }

// Metrics is the derived view of a single grid.
type Metrics struct {
	Counts  Counts  `json:"counts"`
	Entropy float64 `json:"entropy"`
}

// MetricsReport is the metrics document served to clients.
type MetricsReport struct {
	Step    int     `json:"step"`
	Counts  Counts  `json:"counts"`
	Entropy float64 `json:"entropy"`
	// EntropyHistory is the trailing window of the full history.
	EntropyHistory []float64 `json:"entropy_history"`
	Size           int       `json:"size"`
}

// GridView is the grid document returned by fetch, step and seed.
type GridView struct {
	Grid         *Grid         `json:"grid"`
	Metrics      MetricsReport `json:"metrics"`
	PosThreshold int           `json:"pos_threshold"`
	NegThreshold int           `json:"neg_threshold"`
}
