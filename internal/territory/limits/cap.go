package limits

import "strconv"

// Cap is a limit value. The zero value is Unlimited.
type Cap struct {
	value   int64
	bounded bool
}

var Unlimited = Cap{}

// Of returns a bounded cap. Negative values are clamped to zero; callers
// validate user input before getting here.
func Of(n int64) Cap {
	if n < 0 {
		n = 0
	}
	return Cap{value: n, bounded: true}
}

// FromConfig maps the config convention (negative means no limit) to a Cap.
func FromConfig(n int64) Cap {
	if n < 0 {
		return Unlimited
	}
	return Of(n)
}

func (c Cap) IsUnlimited() bool { return !c.bounded }

// Value returns the cap and false for Unlimited.
func (c Cap) Value() (int64, bool) { return c.value, c.bounded }

// Reached reports whether count+added exceeds the cap. Unlimited never does.
func (c Cap) Reached(count, added int64) bool {
	if !c.bounded {
		return false
	}
	return count+added > c.value
}

// Int64 is the config form of the cap: -1 for Unlimited.
func (c Cap) Int64() int64 {
	if !c.bounded {
		return -1
	}
	return c.value
}

func (c Cap) String() string {
	if !c.bounded {
		return "unlimited"
	}
	return strconv.FormatInt(c.value, 10)
}
