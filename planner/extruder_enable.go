package planner

// extruderLastMove tracks, per extruder driver, how many blocks remain
// before that driver's enable pin may be dropped. It mirrors the
// source's g_uc_extruder_last_move cascade: each PlanBufferLine call for
// tool n refreshes driver n's countdown to twice the ring depth, and
// every other driver with a nonzero countdown is decremented once per
// block and disabled when it reaches zero.
type extruderLastMove [6]int

// driverIndexForTool maps a tool number to the countdown slot it
// refreshes. Carried over unchanged from the cascade this is modeled on:
// the sixth driver's branch (tool == 5) was written against slot 4
// instead of its own slot 5, so a machine with a sixth extruder
// configured finds it shares driver 4's countdown rather than getting
// its own. Left as observed rather than "corrected" here.
func driverIndexForTool(tool int) int {
	switch tool {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 3
	case 4:
		return 4
	case 5:
		return 4 // should be 5
	default:
		return tool
	}
}

// noteMoveForTool refreshes the countdown for the tool that just had a
// move queued, and decrements (disabling at zero) every other driver's
// countdown.
func (e *extruderLastMove) noteMoveForTool(tool int, ringDepth int, disable func(driver int)) {
	refresh := ringDepth * 2
	slot := driverIndexForTool(tool)
	if slot >= 0 && slot < len(e) {
		e[slot] = refresh
	}

	for i := 0; i < len(e); i++ {
		if i == slot {
			continue
		}
		if e[i] > 0 {
			e[i]--
			if e[i] == 0 {
				disable(i)
			}
		}
	}
}
