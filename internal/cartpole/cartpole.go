// Package cartpole is the reference environment collaborator: a pole
// balanced on a cart, four-dimensional observation, two discrete actions.
package cartpole

import (
	"math"
	"math/rand"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	length         = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * length
	forceMax       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
	maxSteps       = 500

	// NumState and NumAction describe the observation/action spaces; a
	// worker configured with different dimensions cannot drive this env.
	NumState  = 4
	NumAction = 2
)

type Env struct {
	state []float64 // x, xDot, theta, thetaDot
	steps int
	rng   *rand.Rand
}

func NewEnv(rng *rand.Rand) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	env := &Env{rng: rng}
	env.Reset()
	return env
}

func (e *Env) NumState() int  { return NumState }
func (e *Env) NumAction() int { return NumAction }

// Reset randomizes the cart near the upright equilibrium and returns the
// initial observation.
func (e *Env) Reset() []float64 {
	e.state = []float64{
		e.rng.Float64()*0.1 - 0.05,
		e.rng.Float64()*0.1 - 0.05,
		e.rng.Float64()*0.1 - 0.05,
		e.rng.Float64()*0.1 - 0.05,
	}
	e.steps = 0
	return append([]float64(nil), e.state...)
}

// Step advances the physics by one tick under action 0 (push left) or 1
// (push right).
func (e *Env) Step(action int) ([]float64, float64, bool) {
	force := forceMax
	if action == 0 {
		force = -forceMax
	}

	x, xDot, theta, thetaDot := e.state[0], e.state[1], e.state[2], e.state[3]

	cosTheta := math.Cos(theta)
	sinTheta := math.Sin(theta)

	temp := (force + poleMassLength*thetaDot*thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) / (length * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass
	x += tau * xDot
	xDot += tau * xAcc
	theta += tau * thetaDot
	thetaDot += tau * thetaAcc

	e.state = []float64{x, xDot, theta, thetaDot}
	e.steps++

	done := x < -xThreshold || x > xThreshold || theta < -thetaThreshold || theta > thetaThreshold || e.steps >= maxSteps
	reward := 1.0
	if done && e.steps < maxSteps {
		reward = 0.0
	}
	return append([]float64(nil), e.state...), reward, done
}

func MaxSteps() int {
	return maxSteps
}
