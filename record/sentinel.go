package record

// Sentinel is an opaque tagged marker such as "server timestamp" or
// "delete this field".
//
// Sentinels are stored as written; their semantics are not interpreted.
type Sentinel struct {
	Name string
	Args []Value
}

// NewSentinel returns a sentinel with the given name and arguments.
func NewSentinel(name string, args ...Value) *Sentinel {
	return &Sentinel{Name: name, Args: args}
}

// Equal returns true if both sentinels have the same name and arguments.
func (s *Sentinel) Equal(other *Sentinel) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Name != other.Name || len(s.Args) != len(other.Args) {
		return false
	}
	for i := range s.Args {
		if !s.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

func (s *Sentinel) String() string {
	return "<" + s.Name + ">"
}
