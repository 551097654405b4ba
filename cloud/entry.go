package cloud

import "github.com/google/uuid"

// Entry is the UI-visible metadata record for a decoded Cloud. It never
// holds point data itself; Registry keeps the two side by side so the UI
// layer can poll Entry fields cheaply without touching the (potentially
// very large) backing Cloud.
type Entry struct {
	ID         string
	Name       string
	SourcePath string
	SourceTag  string

	TotalPoints int
	Min, Max    [3]float64

	HasColor          bool
	HasIntensity      bool
	HasClassification bool

	Visible bool

	// IndexProgress is in [0,1]; Phase is one of "Reading file",
	// "Parsing", "Transferring data", "Building octree", "Complete".
	IndexProgress float64
	Phase         string

	// TransformVersion increments on every Translate/Scale/Thin/Delete so
	// observers can cheaply detect mutation without diffing Positions.
	TransformVersion uint64
}

// NewEntry builds an Entry for a freshly decoded Cloud.
func NewEntry(name, sourcePath string, c *Cloud) *Entry {
	return &Entry{
		ID:                uuid.NewString(),
		Name:              name,
		SourcePath:        sourcePath,
		SourceTag:         c.Header.SourceTag,
		TotalPoints:       c.PointCount(),
		Min:               c.Header.Min,
		Max:               c.Header.Max,
		HasColor:          c.HasColor,
		HasIntensity:      c.HasIntensity,
		HasClassification: c.HasClassification,
		Visible:           true,
		IndexProgress:     0,
		Phase:             "Complete",
		TransformVersion:  0,
	}
}

// Touch bumps TransformVersion. Called by every transform/edit operation
// after it mutates the backing Cloud.
func (e *Entry) Touch() {
	e.TransformVersion++
}
