package alarm

import (
	"fmt"
	"strconv"

	"mqguard/internal/ident"
)

// RangeAlarm fires when a decoded numeric payload falls outside [Lower,
// Upper]. Either bound may be +/-Inf to express a one-sided range.
type RangeAlarm struct {
	base
	Lower, Upper float64
}

// NewRangeAlarm builds a RangeAlarm checking lower <= value <= upper.
func NewRangeAlarm(name string, lower, upper float64) *RangeAlarm {
	return &RangeAlarm{
		base:  base{name: name, kind: MessageDriven, priority: PriorityValue},
		Lower: lower,
		Upper: upper,
	}
}

func (a *RangeAlarm) Criteria() *string {
	c := fmt.Sprintf("[%v, %v]", a.Lower, a.Upper)
	return &c
}

func (a *RangeAlarm) CheckMessage(id ident.DataIdentifier, payload []byte) (bool, *string) {
	text, ok := decodeUTF8(payload)
	if !ok {
		return true, msg(decodeErrorMessage)
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return true, msg(fmt.Sprintf("cannot decode '%s' as number", text))
	}
	if value < a.Lower {
		return true, msg(fmt.Sprintf("value %v below minimum allowed range (%v)", value, a.Lower))
	}
	if value > a.Upper {
		return true, msg(fmt.Sprintf("value %v above maximum allowed range (%v)", value, a.Upper))
	}
	return false, nil
}
