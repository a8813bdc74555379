// Package particles owns the encoded per-particle state: positions,
// velocities and the rotating pair of acceleration buffers.
//
// Particle i lives at flat index i of every buffer. Between timesteps the
// Store is the only owner of the buffers; during a timestep the stepper
// writes pass outputs into the targets the Store hands out and commits them.
package particles

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/stipple/internal/codec"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrCapacity     = errors.New("particles: particle count exceeds buffer capacity")
	ErrInvalidCount = errors.New("particles: particle count must be positive")
	ErrBufferSize   = errors.New("particles: buffer size must be positive")
)

// Codecs holds the encoding used for each kind of buffer.
type Codecs struct {
	Position     codec.Codec
	Velocity     codec.Codec
	Acceleration codec.Codec
}

type Store struct {
	bufXY   int
	numDots int
	codecs  Codecs

	pos    *codec.Buffer
	vel    *codec.Buffer
	posOut *codec.Buffer
	velOut *codec.Buffer
	acc    [2]*codec.Buffer
	active int
}

// New allocates buffers of bufXY x bufXY pixels. Call Initialize before use.
func New(bufXY int, codecs Codecs) (*Store, error) {
	if bufXY <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBufferSize, bufXY)
	}
	return &Store{
		bufXY:  bufXY,
		codecs: codecs,
		pos:    codec.NewBuffer(bufXY),
		vel:    codec.NewBuffer(bufXY),
		posOut: codec.NewBuffer(bufXY),
		velOut: codec.NewBuffer(bufXY),
		acc:    [2]*codec.Buffer{codec.NewBuffer(bufXY), codec.NewBuffer(bufXY)},
	}, nil
}

// Capacity is the largest particle count the buffers can address.
func Capacity(bufXY int) int { return bufXY * bufXY }

// Initialize places numDots particles uniformly in [-1,1]² using a seeded
// source, with zero velocity and zero acceleration in both slots. The same
// seed always yields the same buffers.
func (s *Store) Initialize(numDots int, seed int64) error {
	if numDots <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, numDots)
	}
	if numDots > Capacity(s.bufXY) {
		return fmt.Errorf("%w: %d particles, %dx%d buffer holds %d", ErrCapacity, numDots, s.bufXY, s.bufXY, Capacity(s.bufXY))
	}
	s.numDots = numDots

	zero := r2.Vec{}
	s.pos.Fill(s.codecs.Position.EncodeVec2(zero))
	s.vel.Fill(s.codecs.Velocity.EncodeVec2(zero))
	s.posOut.Fill(s.codecs.Position.EncodeVec2(zero))
	s.velOut.Fill(s.codecs.Velocity.EncodeVec2(zero))
	for _, a := range s.acc {
		a.Fill(s.codecs.Acceleration.EncodeVec2(zero))
	}
	s.active = 0

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < numDots; i++ {
		p := r2.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
		s.pos.SetVec2(i, s.codecs.Position, p)
	}
	return nil
}

func (s *Store) NumDots() int   { return s.numDots }
func (s *Store) BufXY() int     { return s.bufXY }
func (s *Store) Codecs() Codecs { return s.codecs }

func (s *Store) PositionBuffer() *codec.Buffer { return s.pos }
func (s *Store) VelocityBuffer() *codec.Buffer { return s.vel }

// AccelerationBuffer returns the buffer of the given slot (0 or 1).
func (s *Store) AccelerationBuffer(slot int) *codec.Buffer { return s.acc[slot&1] }

func (s *Store) Position(i int) r2.Vec { return s.pos.Vec2(i, s.codecs.Position) }

func (s *Store) Velocity(i int) r2.Vec { return s.vel.Vec2(i, s.codecs.Velocity) }

func (s *Store) Acceleration(slot, i int) r2.Vec {
	return s.acc[slot&1].Vec2(i, s.codecs.Acceleration)
}

// Positions decodes every particle position.
func (s *Store) Positions() []r2.Vec {
	out := make([]r2.Vec, s.numDots)
	for i := range out {
		out[i] = s.Position(i)
	}
	return out
}

// Velocities decodes every particle velocity.
func (s *Store) Velocities() []r2.Vec {
	out := make([]r2.Vec, s.numDots)
	for i := range out {
		out[i] = s.Velocity(i)
	}
	return out
}

// ActiveAcceleration is the slot holding the newest acceleration.
func (s *Store) ActiveAcceleration() int { return s.active }

// PreviousAcceleration is the slot holding the acceleration of the timestep
// before the newest one.
func (s *Store) PreviousAcceleration() int { return 1 - s.active }

// SwapAcceleration flips the active slot. It must run exactly once per
// completed timestep, after the position pass.
func (s *Store) SwapAcceleration() { s.active = 1 - s.active }

// AccelerationTarget is where the acceleration pass writes: the slot that is
// not active, which becomes the newest once the timestep commits.
func (s *Store) AccelerationTarget() *codec.Buffer { return s.acc[1-s.active] }

// VelocityTarget is the scratch buffer the velocity pass writes.
func (s *Store) VelocityTarget() *codec.Buffer { return s.velOut }

// PositionTarget is the scratch buffer the position pass writes.
func (s *Store) PositionTarget() *codec.Buffer { return s.posOut }

// CommitVelocity makes the velocity pass output live.
func (s *Store) CommitVelocity() { s.vel, s.velOut = s.velOut, s.vel }

// CommitPosition makes the position pass output live.
func (s *Store) CommitPosition() { s.pos, s.posOut = s.posOut, s.pos }
