package alarm

import (
	"fmt"
	"strings"

	"mqguard/internal/ident"
)

// ErrorCodesAlarm fires when the decoded payload matches one of a declared
// set of error tokens.
type ErrorCodesAlarm struct {
	base
	Codes map[string]struct{}
}

// NewErrorCodesAlarm builds an ErrorCodesAlarm over the given tokens.
func NewErrorCodesAlarm(name string, codes []string) *ErrorCodesAlarm {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &ErrorCodesAlarm{
		base:  base{name: name, kind: MessageDriven, priority: PriorityErrorCode},
		Codes: set,
	}
}

func (a *ErrorCodesAlarm) Criteria() *string {
	codes := make([]string, 0, len(a.Codes))
	for c := range a.Codes {
		codes = append(codes, c)
	}
	c := strings.Join(codes, " ")
	return &c
}

func (a *ErrorCodesAlarm) CheckMessage(id ident.DataIdentifier, payload []byte) (bool, *string) {
	text, ok := decodeUTF8(payload)
	if !ok {
		return true, msg(decodeErrorMessage)
	}
	if _, found := a.Codes[text]; found {
		return true, msg(fmt.Sprintf("error code detected: %s", text))
	}
	return false, nil
}
