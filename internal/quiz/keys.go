package quiz

import "strings"

// KeyAction maps a keyboard key to its action. Unmapped keys report false.
func KeyAction(key string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "arrowleft", "left":
		return Undo{}, true
	case "arrowright", "right":
		return PlayRandomMove{}, true
	case "arrowup", "up":
		return Reset{}, true
	case "arrowdown", "down":
		return JumpToRandomPosition{}, true
	case "f":
		return Flip{}, true
	}
	return nil, false
}
