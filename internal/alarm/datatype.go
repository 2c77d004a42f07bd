package alarm

import (
	"fmt"
	"strconv"
	"unicode"

	"mqguard/internal/ident"
)

// predicate decides whether a decoded payload satisfies the alarm's data
// type constraint.
type predicate func(string) bool

// dataTypeAlarm fires when the decoded payload fails its type predicate.
// NumericAlarm, AlphanumericAlarm and AlphabeticAlarm are all instances of
// this shape; they differ only in the predicate and the reported kind name.
type dataTypeAlarm struct {
	base
	kindName string
	check    predicate
}

func newDataTypeAlarm(name, kindName string, check predicate) *dataTypeAlarm {
	return &dataTypeAlarm{
		base:     base{name: name, kind: MessageDriven, priority: PriorityDataType},
		kindName: kindName,
		check:    check,
	}
}

func (a *dataTypeAlarm) Criteria() *string {
	c := a.kindName
	return &c
}

func (a *dataTypeAlarm) CheckMessage(id ident.DataIdentifier, payload []byte) (bool, *string) {
	text, ok := decodeUTF8(payload)
	if !ok {
		return true, msg(decodeErrorMessage)
	}
	if !a.check(text) {
		return true, msg(fmt.Sprintf("value '%s' is not %s", text, a.kindName))
	}
	return false, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// NewNumericAlarm fires unless the payload parses as a floating point number.
func NewNumericAlarm(name string) Alarm {
	return newDataTypeAlarm(name, "numeric", isNumeric)
}

// NewAlphanumericAlarm fires unless every code point is a letter or digit.
func NewAlphanumericAlarm(name string) Alarm {
	return newDataTypeAlarm(name, "alphanumeric", isAlphanumeric)
}

// NewAlphabeticAlarm fires unless every code point is a letter.
func NewAlphabeticAlarm(name string) Alarm {
	return newDataTypeAlarm(name, "alphabetic", isAlphabetic)
}
