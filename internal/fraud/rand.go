package fraud

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource supplies the randomness embedded in business rules (the
// stochastic device-anomaly trigger, the similarity inflation, the
// authenticator simulation). Injected so tests can supply deterministic
// sequences.
type RandomSource interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewRandomSource returns a time-seeded, goroutine-safe RandomSource.
func NewRandomSource() RandomSource {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// FixedRandomSource replays a fixed sequence of values, for tests.
type FixedRandomSource struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewFixedRandomSource creates a source cycling over the given values.
func NewFixedRandomSource(values ...float64) *FixedRandomSource {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &FixedRandomSource{values: values}
}

func (f *FixedRandomSource) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values[f.pos%len(f.values)]
	f.pos++
	return v
}
