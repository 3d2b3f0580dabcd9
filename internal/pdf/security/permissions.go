package security

import (
	"fmt"
	"strings"
)

// Permissions are the user access flags of an encrypted document (/Encrypt /P)
type Permissions struct {
	Print            bool `json:"print"`              // Bit 3
	Modify           bool `json:"modify"`             // Bit 4
	Copy             bool `json:"copy"`               // Bit 5
	Annotate         bool `json:"annotate"`           // Bit 6 - add annotations, create and fill form fields
	FillForms        bool `json:"fill_forms"`         // Bit 9 - fill existing fields even without bit 6
	Extract          bool `json:"extract"`            // Bit 10
	Assemble         bool `json:"assemble"`           // Bit 11
	PrintHighQuality bool `json:"print_high_quality"` // Bit 12
}

// NewPermissions decodes a /P value
func NewPermissions(perms int32) Permissions {
	return Permissions{
		Print:            perms&0x04 != 0,
		Modify:           perms&0x08 != 0,
		Copy:             perms&0x10 != 0,
		Annotate:         perms&0x20 != 0,
		FillForms:        perms&0x200 != 0,
		Extract:          perms&0x400 != 0,
		Assemble:         perms&0x800 != 0,
		PrintHighQuality: perms&0x1000 != 0,
	}
}

// NewFullPermissions returns the permissions of an unencrypted document
func NewFullPermissions() Permissions {
	return Permissions{
		Print:            true,
		Modify:           true,
		Copy:             true,
		Annotate:         true,
		FillForms:        true,
		Extract:          true,
		Assemble:         true,
		PrintHighQuality: true,
	}
}

// AllowsFieldCreation reports whether new form fields may be added. Adding a
// widget annotation needs bit 6; bit 9 alone only covers filling.
func (p Permissions) AllowsFieldCreation() bool {
	return p.Annotate
}

// DeniedOperations lists the operations the flags forbid
func (p Permissions) DeniedOperations() []string {
	var denied []string
	for _, op := range p.operations() {
		if !op.allowed {
			denied = append(denied, op.name)
		}
	}
	return denied
}

// String returns a human-readable representation of the permissions
func (p Permissions) String() string {
	var parts []string
	for _, op := range p.operations() {
		if op.allowed {
			parts = append(parts, op.name)
		}
	}
	if len(parts) == 0 {
		return "No permissions granted"
	}
	return fmt.Sprintf("Allowed: %s", strings.Join(parts, ", "))
}

type operation struct {
	name    string
	allowed bool
}

func (p Permissions) operations() []operation {
	return []operation{
		{"print", p.Print},
		{"modify", p.Modify},
		{"copy", p.Copy},
		{"annotate", p.Annotate},
		{"fill_forms", p.FillForms},
		{"extract", p.Extract},
		{"assemble", p.Assemble},
		{"print_high_quality", p.PrintHighQuality},
	}
}
