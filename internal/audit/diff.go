package audit

import (
	"fmt"
	"strings"

	"github.com/jdramirez/servipro/pkg/util"
	"github.com/shopspring/decimal"
)

// Change is one field-level difference between the stored and the incoming
// state of a record.
type Change struct {
	Field string
	Old   string
	New   string
}

// ChangeSet accumulates the fields a mutation actually changed. A mutation
// with an empty ChangeSet produces no audit entry.
type ChangeSet struct {
	Changes []Change
}

func (c *ChangeSet) Add(field, oldVal, newVal string) {
	if oldVal == newVal {
		return
	}
	c.Changes = append(c.Changes, Change{Field: field, Old: oldVal, New: newVal})
}

func (c *ChangeSet) AddBool(field string, oldVal, newVal bool) {
	c.Add(field, fmt.Sprintf("%t", oldVal), fmt.Sprintf("%t", newVal))
}

func (c *ChangeSet) AddMoney(field string, oldVal, newVal decimal.Decimal) {
	if oldVal.Equal(newVal) {
		return
	}
	c.Changes = append(c.Changes, Change{
		Field: field,
		Old:   util.FormatMoney(oldVal),
		New:   util.FormatMoney(newVal),
	})
}

func (c *ChangeSet) Empty() bool {
	return len(c.Changes) == 0
}

// Describe renders the changes for a human auditor, embedding the values
// themselves so the log can be read without cross-referencing other tables.
func (c *ChangeSet) Describe() string {
	parts := make([]string, len(c.Changes))
	for i, ch := range c.Changes {
		parts[i] = fmt.Sprintf("%s: '%s' a '%s'", ch.Field, ch.Old, ch.New)
	}
	return strings.Join(parts, ", ")
}

// OldValues returns the pre-mutation snapshot of changed fields only.
func (c *ChangeSet) OldValues() map[string]string {
	out := make(map[string]string, len(c.Changes))
	for _, ch := range c.Changes {
		out[ch.Field] = ch.Old
	}
	return out
}

// NewValues returns the post-mutation snapshot of changed fields only.
func (c *ChangeSet) NewValues() map[string]string {
	out := make(map[string]string, len(c.Changes))
	for _, ch := range c.Changes {
		out[ch.Field] = ch.New
	}
	return out
}
