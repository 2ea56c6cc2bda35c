package domain

// Caps maps a rendered Key to the maximum quantity allowed for it. Caps live
// independently of cart lines.
type Caps map[string]int

func (c Caps) Get(key Key) (int, bool) {
	v, ok := c[key.String()]
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

func (c Caps) Clone() Caps {
	out := make(Caps, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Clamp limits quantity to the cap for key, if any. The result may be 0 or
// negative; callers drop such lines.
func (c Caps) Clamp(key Key, quantity int) int {
	if limit, ok := c.Get(key); ok && quantity > limit {
		return limit
	}
	return quantity
}
