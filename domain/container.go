package domain

// ContainerKind distinguishes the grouping surfaces of the board.
type ContainerKind string

const (
	KindQuadrant ContainerKind = "quadrant"
	KindList     ContainerKind = "list"
	KindRoutine  ContainerKind = "routine"
)

// ForcedFlags are attribute overrides a container imposes on any task placed
// inside it. Nil means the container preserves whatever the task already has.
type ForcedFlags struct {
	Urgent    bool
	Important bool
}

// Container is a logical grouping tasks belong to: one of the four matrix
// quadrants, a custom list, or a routine section.
type Container struct {
	ID     string
	Name   string
	Kind   ContainerKind
	Forced *ForcedFlags
}

// Apply stamps the container's forced flags onto the task, if any, and
// recomputes the derived weight.
func (c Container) Apply(t Task) Task {
	t.Container = c.ID
	if c.Forced != nil {
		t.Urgent = c.Forced.Urgent
		t.Important = c.Forced.Important
	}
	return t.Reweigh()
}

// Matrix quadrant container ids.
const (
	QuadrantDoFirst   = "do-first"
	QuadrantSchedule  = "schedule"
	QuadrantDelegate  = "delegate"
	QuadrantEliminate = "eliminate"
)

// ContainerProvider resolves container metadata by id.
type ContainerProvider interface {
	Container(id string) (Container, bool)
}

// ContainerSet is a static ContainerProvider seeded with the four matrix
// quadrants. Custom lists and routine sections can be added at wiring time;
// they force no attributes.
type ContainerSet struct {
	byID  map[string]Container
	order []string
}

// NewContainerSet builds a set holding the matrix quadrants.
func NewContainerSet() *ContainerSet {
	s := &ContainerSet{byID: make(map[string]Container)}
	s.add(Container{ID: QuadrantDoFirst, Name: "Do first", Kind: KindQuadrant, Forced: &ForcedFlags{Urgent: true, Important: true}})
	s.add(Container{ID: QuadrantSchedule, Name: "Schedule", Kind: KindQuadrant, Forced: &ForcedFlags{Urgent: false, Important: true}})
	s.add(Container{ID: QuadrantDelegate, Name: "Delegate", Kind: KindQuadrant, Forced: &ForcedFlags{Urgent: true, Important: false}})
	s.add(Container{ID: QuadrantEliminate, Name: "Eliminate", Kind: KindQuadrant, Forced: &ForcedFlags{Urgent: false, Important: false}})
	return s
}

func (s *ContainerSet) add(c Container) {
	if _, exists := s.byID[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.byID[c.ID] = c
}

// AddList registers a custom list container.
func (s *ContainerSet) AddList(id, name string) {
	s.add(Container{ID: id, Name: name, Kind: KindList})
}

// AddRoutine registers a routine section container.
func (s *ContainerSet) AddRoutine(id, name string) {
	s.add(Container{ID: id, Name: name, Kind: KindRoutine})
}

// Container implements ContainerProvider.
func (s *ContainerSet) Container(id string) (Container, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// IDs returns the container ids in registration order.
func (s *ContainerSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
