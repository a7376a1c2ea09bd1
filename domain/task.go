package domain

// Task represents a single board item in the local read model.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Container string `json:"container"`
	Order     int64  `json:"order"`
	Urgent    bool   `json:"urgent,omitempty"`
	Important bool   `json:"important,omitempty"`
	Done      bool   `json:"done,omitempty"`
	Weight    int    `json:"weight,omitempty"`
}

// WeightFor computes the earnings weight of a task from its flags. The same
// formula is used everywhere a weight is derived so that a moved task scores
// identically to a freshly fetched one.
func WeightFor(urgent, important, done bool) int {
	if done {
		return 0
	}
	switch {
	case urgent && important:
		return 4
	case important:
		return 3
	case urgent:
		return 2
	default:
		return 1
	}
}

// Reweigh returns a copy of the task with its weight recomputed from the
// current flag values.
func (t Task) Reweigh() Task {
	t.Weight = WeightFor(t.Urgent, t.Important, t.Done)
	return t
}
