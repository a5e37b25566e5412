package drive

import "sync"

// SimulatedActuator records what a motor driver would have been told. It backs
// the `simulated` driver setting and the tests.
type SimulatedActuator struct {
	mu        sync.Mutex
	enabled   bool
	outputs   [2]WheelOutput
	writes    int
	failWrite error
}

// NewSimulatedActuator returns an actuator with both wheels braked and the
// driver disabled.
func NewSimulatedActuator() *SimulatedActuator {
	return &SimulatedActuator{}
}

func (s *SimulatedActuator) EnableDriver() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	return nil
}

func (s *SimulatedActuator) SetDirection(wheel Wheel, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.outputs[wheel].Direction = dir
	s.writes++
	return nil
}

func (s *SimulatedActuator) SetDutyCycle(wheel Wheel, duty uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.outputs[wheel].Duty = int(duty)
	s.writes++
	return nil
}

// Output returns the last direction and duty written for wheel.
func (s *SimulatedActuator) Output(wheel Wheel) WheelOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs[wheel]
}

// Enabled reports whether EnableDriver has been called.
func (s *SimulatedActuator) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Writes returns the number of direction and duty writes so far.
func (s *SimulatedActuator) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FailWrites makes every subsequent direction/duty write return err. Pass nil
// to restore normal behaviour.
func (s *SimulatedActuator) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = err
}
