package models

import "time"

// Image is one object placed in the workspace.
type Image struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Natural        Size            `json:"natural"`
	Placement      Placement       `json:"placement"`
	Classification *Classification `json:"classification,omitempty"`
	AddedAt        time.Time       `json:"addedAt"`
}
