package models

import "time"

// Document is one stored document. Data is a flat JSON object; OwnerID is
// the uid of the user who created it.
type Document struct {
	Collection string
	ID         string
	OwnerID    string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (d *Document) Clone() *Document {
	c := *d
	c.Data = make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		c.Data[k] = v
	}
	return &c
}
