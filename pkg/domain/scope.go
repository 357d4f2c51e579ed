package domain

// Scope is the variable view used by rendering and scripts.
// Lookups see the innermost frame first; writes go to the innermost
// writable frame, or to session state when no frame isolates them.
type Scope interface {
	Lookup(path string) (Value, bool)
	Set(key string, v Value)
	SetGlobal(key string, v Value)
	Values() map[string]Value
}

// MapScope is a Scope over a single flat map.
type MapScope map[string]Value

func (m MapScope) Lookup(path string) (Value, bool) {
	return lookupPath(m, path)
}

func (m MapScope) Set(key string, v Value)       { m[key] = v }
func (m MapScope) SetGlobal(key string, v Value) { m[key] = v }
func (m MapScope) Values() map[string]Value      { return m }

// LookupPath resolves a dotted path against a value map. The first segment
// names the variable; the rest descend into it.
func LookupPath(m map[string]Value, path string) (Value, bool) {
	return lookupPath(m, path)
}

func lookupPath(m map[string]Value, path string) (Value, bool) {
	if m == nil || path == "" {
		return Null(), false
	}
	if v, ok := m[path]; ok {
		return v, true
	}
	head, rest := path, ""
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			head, rest = path[:i], path[i+1:]
			break
		}
	}
	v, ok := m[head]
	if !ok || rest == "" {
		return v, ok
	}
	return v.Get(rest)
}
