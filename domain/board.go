package domain

import "sort"

// Board is the local collection of tasks the engine reorders. It is treated
// as immutable by readers: mutations produce a new Board via Clone so an old
// pointer doubles as a rollback snapshot.
type Board struct {
	tasks map[string]Task
}

// NewBoard builds a board from a fetched task list. Later duplicates of an id
// win, matching the backend's last-writer-wins read model.
func NewBoard(tasks []Task) *Board {
	b := &Board{tasks: make(map[string]Task, len(tasks))}
	for _, t := range tasks {
		b.tasks[t.ID] = t
	}
	return b
}

// Get returns the task with the given id.
func (b *Board) Get(id string) (Task, bool) {
	t, ok := b.tasks[id]
	return t, ok
}

// Len returns the number of tasks on the board.
func (b *Board) Len() int { return len(b.tasks) }

// ItemsIn returns the tasks of one container sorted by order key ascending.
// Equal keys must not occur, but if they ever do the task id breaks the tie
// so rendering stays deterministic.
func (b *Board) ItemsIn(containerID string) []Task {
	var out []Task
	for _, t := range b.tasks {
		if t.Container == containerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SiblingKeys returns the sorted order keys of a container, excluding the
// task with excludeID. This is the input ComputeOrderKey expects: a moving
// task is never compared against its own old position.
func (b *Board) SiblingKeys(containerID, excludeID string) []int64 {
	items := b.ItemsIn(containerID)
	keys := make([]int64, 0, len(items))
	for _, t := range items {
		if t.ID == excludeID {
			continue
		}
		keys = append(keys, t.Order)
	}
	return keys
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{tasks: make(map[string]Task, len(b.tasks))}
	for id, t := range b.tasks {
		c.tasks[id] = t
	}
	return c
}

// Put replaces or inserts a task. Callers mutate only freshly cloned boards.
func (b *Board) Put(t Task) {
	b.tasks[t.ID] = t
}

// Tasks returns all tasks in unspecified order.
func (b *Board) Tasks() []Task {
	out := make([]Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	return out
}
