package model

type SlotState string

const (
	SlotStateFree     SlotState = "free"
	SlotStateOccupied SlotState = "occupied"
)

// Slot is a candidate appointment start-time within an office's hours. Value
// is the machine form (24h HH:MM), Label the 12h display form.
type Slot struct {
	Value string    `json:"value"`
	Label string    `json:"label"`
	State SlotState `json:"state"`
}
