package pipeline

// Record is one parsed row of the comparison stream: the 0-based position in
// the input (csv_index) plus the parsed query point and its optional id.
type Record struct {
	CSVIndex int
	ID       string
	LngDeg   float64
	LatDeg   float64
}

// Output is what a search worker sends downstream: either a populated Match
// list for Record, or a non-fatal per-record Err (the csv_index is always
// carried so the writer can report it).
type Output struct {
	CSVIndex int
	ID       string
	LngDeg   float64
	LatDeg   float64
	Matches  []Match
	Err      error
}

// Match is one result row: a single matched datum's distance (meters) and
// projected fields.
type Match struct {
	DistanceMeters float64
	FindIndex      int
	Fields         []string
}
