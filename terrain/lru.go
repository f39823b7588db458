package terrain

// lru is a small most-recently-used list of master tile copies. Callers
// only ever see them through Clone, so in-place scaling never reaches the
// cache. Not safe for concurrent use.
type lru struct {
	cap int
	ll  []string
	m   map[string]*Tile
}

func newLRU(cap int) *lru {
	if cap <= 0 {
		cap = 1
	}
	return &lru{cap: cap, ll: make([]string, 0, cap), m: make(map[string]*Tile)}
}

func (l *lru) get(k string) (*Tile, bool) {
	if v, ok := l.m[k]; ok {
		l.touch(k)
		return v, true
	}
	return nil, false
}

func (l *lru) put(k string, v *Tile) {
	if _, ok := l.m[k]; ok {
		l.m[k] = v
		l.touch(k)
		return
	}
	if len(l.ll) == l.cap {
		evict := l.ll[len(l.ll)-1]
		delete(l.m, evict)
		l.ll = l.ll[:len(l.ll)-1]
	}
	l.ll = append(l.ll, "")
	copy(l.ll[1:], l.ll)
	l.ll[0] = k
	l.m[k] = v
}

func (l *lru) len() int { return len(l.ll) }

// touch moves k to the front.
func (l *lru) touch(k string) {
	idx := -1
	for i, s := range l.ll {
		if s == k {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}
	copy(l.ll[1:idx+1], l.ll[0:idx])
	l.ll[0] = k
}
