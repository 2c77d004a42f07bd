package alarm

import "mqguard/internal/ident"

// base carries the fields every variant shares and supplies default no-op
// implementations for the half of the capability set a variant doesn't use
// (a message-driven alarm never runs CheckPeriodic and vice versa).
type base struct {
	name     string
	kind     Kind
	priority Priority
}

func (b base) Name() string       { return b.name }
func (b base) Kind() Kind         { return b.kind }
func (b base) Priority() Priority { return b.priority }
func (b base) Criteria() *string  { return nil }

func (b base) NotifyMessage(ident.DataIdentifier, []byte) bool { return false }

func (b base) CheckPeriodic() (bool, *string) {
	return false, nil
}

func (b base) CheckMessage(ident.DataIdentifier, []byte) (bool, *string) {
	return false, nil
}
