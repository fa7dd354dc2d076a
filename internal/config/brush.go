package config

import "sync"

// Brush holds the sculpting settings that can change while a session runs.
type Brush struct {
	mu         sync.RWMutex
	radius     float32
	addRate    float32
	removeRate float32
}

// NewBrush creates a brush from the configured defaults.
func NewBrush(e EditConfig) *Brush {
	b := &Brush{}
	b.SetRadius(e.Radius)
	b.SetRates(e.AddRate, e.RemoveRate)
	return b
}

// Radius returns the brush radius in nodes.
func (b *Brush) Radius() float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.radius
}

// SetRadius sets the brush radius in nodes.
func (b *Brush) SetRadius(r float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Clamp to reasonable values
	if r < 0.5 {
		r = 0.5
	}
	if r > 16 {
		r = 16
	}
	b.radius = r
}

// Rates returns the add and remove rates in iso units per second.
func (b *Brush) Rates() (add, remove float32) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addRate, b.removeRate
}

// SetRates sets the add and remove rates. Negative rates are treated as zero.
func (b *Brush) SetRates(add, remove float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addRate = max(add, 0)
	b.removeRate = max(remove, 0)
}

// Amount returns the signed density change for a stroke lasting dt seconds.
// Adding material lowers iso values, removing raises them.
func (b *Brush) Amount(add bool, dt float32) float32 {
	a, r := b.Rates()
	if add {
		return -a * dt
	}
	return r * dt
}
