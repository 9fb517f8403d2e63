// Package spin resolves the task_4 slot through a server-side weighted
// wheel draw. The client never supplies or influences the outcome.
package spin

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Segment pairs a wheel prize with its display label and draw weight
type Segment struct {
	Prize  int64
	Label  string
	Weight int
}

// Wheel is the fixed prize table. Draws walk the segments in declaration
// order, so the order here is part of the draw semantics.
var Wheel = []Segment{
	{Prize: 15, Label: "15 PKR", Weight: 40},
	{Prize: 0, Label: "Try Again", Weight: 35},
	{Prize: 25, Label: "25 PKR", Weight: 12},
	{Prize: 50, Label: "50 PKR", Weight: 8},
	{Prize: 100, Label: "100 PKR", Weight: 4},
	{Prize: 199, Label: "199 PKR", Weight: 1},
}

// TotalWeight is the sum of all segment weights
const TotalWeight = 100

// Draw maps a roll in [0, TotalWeight) to a segment by walking the
// wheel in declaration order and subtracting each weight until the roll
// goes negative.
func Draw(roll int) Segment {
	r := roll
	for _, seg := range Wheel {
		r -= seg.Weight
		if r < 0 {
			return seg
		}
	}
	return Wheel[len(Wheel)-1]
}

// SecureRoll draws a uniform roll in [0, TotalWeight) from crypto/rand
func SecureRoll() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(TotalWeight))
	if err != nil {
		return 0, fmt.Errorf("failed to draw wheel roll: %w", err)
	}
	return int(n.Int64()), nil
}

// WeightSnapshot renders the wheel as a label-to-weight map for the
// audit record attached to each draw.
func WeightSnapshot() map[string]int {
	snapshot := make(map[string]int, len(Wheel))
	for _, seg := range Wheel {
		snapshot[seg.Label] = seg.Weight
	}
	return snapshot
}
