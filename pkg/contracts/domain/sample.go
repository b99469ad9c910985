package domain

// Sample is one acquisition well of a run.
type Sample struct {
	Index    int    `json:"index"`          // acquisition order number
	Well     string `json:"well,omitempty"` // plate well, e.g. "H2"
	Name     string `json:"name"`
	Location string `json:"location"` // row key, e.g. "1 (H2)" or "1(1,A1)"
}

// LocationPair maps a row in a source document onto a row in a target document.
type LocationPair struct {
	Source string `json:"source" validate:"required,location"`
	Target string `json:"target" validate:"required,location"`
}
