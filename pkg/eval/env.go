package eval

// slot is one variable binding. TypeName is the declared (or inferred) type
// tag kept for interop marshalling and error messages; it is not enforced
// on reassignment.
type slot struct {
	value    Object
	constant bool
	typeName string
	isArray  bool
}

// Environment is one lexical scope: a name table plus a shared reference to
// the enclosing scope. Closures and `this` bindings alias environments, so
// mutation through any holder is visible to all of them.
type Environment struct {
	store map[string]*slot
	outer *Environment
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]*slot)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{store: make(map[string]*slot), outer: outer}
}

// Define binds a new name in this scope. A name may exist at most once per
// level; shadowing an outer binding is always allowed.
func (e *Environment) Define(name string, value Object, constant bool, typeName string, isArray bool) bool {
	if _, exists := e.store[name]; exists {
		return false
	}
	e.store[name] = &slot{value: value, constant: constant, typeName: typeName, isArray: isArray}
	return true
}

type assignResult uint8

const (
	assignOK assignResult = iota
	assignConst
	assignUndefined
)

// Assign walks the chain and overwrites the first matching slot.
func (e *Environment) Assign(name string, value Object) assignResult {
	for env := e; env != nil; env = env.outer {
		if s, ok := env.store[name]; ok {
			if s.constant {
				return assignConst
			}
			s.value = value
			return assignOK
		}
	}
	return assignUndefined
}

// Get walks the chain and returns the first matching value.
func (e *Environment) Get(name string) (Object, bool) {
	for env := e; env != nil; env = env.outer {
		if s, ok := env.store[name]; ok {
			return s.value, true
		}
	}
	return nil, false
}

// Lookup exposes the full slot; the interop bridge reads the declared type
// tag from it.
func (e *Environment) Lookup(name string) (*slot, bool) {
	for env := e; env != nil; env = env.outer {
		if s, ok := env.store[name]; ok {
			return s, true
		}
	}
	return nil, false
}

// Has reports whether the name exists in this level only.
func (e *Environment) Has(name string) bool {
	_, ok := e.store[name]
	return ok
}

// Names returns the names bound at this level, for REPL completion.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	return names
}
