package model

// Level is the academic level of a degree program.
type Level string

const (
	LevelUndergraduate Level = "UG"
	LevelPostgraduate  Level = "PG"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	return l == LevelUndergraduate || l == LevelPostgraduate
}

// Degree is an academic-program catalog entry. The Record Store owns it;
// the search index only holds a projection of its fields.
type Degree struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Years         float64 `json:"years"`
	Level         Level   `json:"level"`
	AverageSalary float64 `json:"averageSalary"`
}

// Fields returns the mutable fields of the degree.
func (d *Degree) Fields() DegreeFields {
	return DegreeFields{
		Name:          d.Name,
		Years:         d.Years,
		Level:         d.Level,
		AverageSalary: d.AverageSalary,
	}
}

// DegreeFields is a validated set of degree fields, as written to either store.
type DegreeFields struct {
	Name          string  `json:"name"`
	Years         float64 `json:"years"`
	Level         Level   `json:"level"`
	AverageSalary float64 `json:"averageSalary"`
}

// DegreeInput holds candidate fields from a client. Nil means the field was absent.
type DegreeInput struct {
	Name          *string  `json:"name"`
	Years         *float64 `json:"years"`
	Level         *string  `json:"level"`
	AverageSalary *float64 `json:"averageSalary"`
}

// SearchHit is one degree matched by a search, with its relevance score.
type SearchHit struct {
	Degree
	Score float64 `json:"score"`
}

// SearchResult is the outcome of a degree search. Empty is set when the
// query ran successfully but matched nothing.
type SearchResult struct {
	Query string      `json:"query"`
	Total int         `json:"total"`
	Hits  []SearchHit `json:"degrees"`
	Empty bool        `json:"empty"`
}
