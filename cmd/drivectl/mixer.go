package main

import "github.com/go-gl/mathgl/mgl64"

const maxWheel = 255

// mixArcade converts an arcade joystick position into differential wheel
// commands. x is right-positive, y is forward-positive, both nominally in
// [-1, 1]; positions outside the unit circle are pulled back onto it.
func mixArcade(x, y float64) (left, right int) {
	stick := mgl64.Vec2{x, y}
	if l := stick.Len(); l > 1 {
		stick = stick.Mul(1 / l)
	}

	l := mgl64.Clamp(stick.Y()+stick.X(), -1, 1)
	r := mgl64.Clamp(stick.Y()-stick.X(), -1, 1)
	return int(l * maxWheel), int(r * maxWheel)
}
