package particles

import "github.com/san-kum/stipple/internal/codec"

// Snapshot is a deep copy of the live state.
type Snapshot struct {
	Position     *codec.Buffer
	Velocity     *codec.Buffer
	Acceleration [2]*codec.Buffer
	Active       int
	NumDots      int
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Position:     s.pos.Clone(),
		Velocity:     s.vel.Clone(),
		Acceleration: [2]*codec.Buffer{s.acc[0].Clone(), s.acc[1].Clone()},
		Active:       s.active,
		NumDots:      s.numDots,
	}
}

// Restore overwrites the live state with snap. Nothing is copied unless every
// buffer in snap matches the store's size.
func (s *Store) Restore(snap Snapshot) bool {
	pairs := [][2]*codec.Buffer{
		{s.pos, snap.Position},
		{s.vel, snap.Velocity},
		{s.acc[0], snap.Acceleration[0]},
		{s.acc[1], snap.Acceleration[1]},
	}
	for _, p := range pairs {
		if p[1] == nil || p[1].Size() != p[0].Size() {
			return false
		}
	}
	for _, p := range pairs {
		p[0].CopyFrom(p[1])
	}
	s.active = snap.Active
	s.numDots = snap.NumDots
	return true
}

// Equal reports whether two snapshots are byte-identical.
func (a Snapshot) Equal(b Snapshot) bool {
	return a.Active == b.Active &&
		a.NumDots == b.NumDots &&
		a.Position.Equal(b.Position) &&
		a.Velocity.Equal(b.Velocity) &&
		a.Acceleration[0].Equal(b.Acceleration[0]) &&
		a.Acceleration[1].Equal(b.Acceleration[1])
}
