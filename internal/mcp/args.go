package mcp

import (
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// arguments are the decoded arguments of a tool call. JSON numbers arrive
// as float64.
type arguments map[string]interface{}

func newArguments(request mcp.CallToolRequest) arguments {
	args := request.GetArguments()
	if args == nil {
		return arguments{}
	}
	return arguments(args)
}

// optString returns a string argument or "" when absent or not a string
func (a arguments) optString(name string) string {
	v, _ := a.lookupString(name)
	return v
}

func (a arguments) lookupString(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// number returns a numeric argument and whether it was present
func (a arguments) number(name string) (float64, bool, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be a number, got %T", name, raw)
	}
}

func (a arguments) requireNumber(name string) (float64, error) {
	v, ok, err := a.number(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("required argument %q not found", name)
	}
	return v, nil
}

// integer returns a whole-number argument and whether it was present
func (a arguments) integer(name string) (int, bool, error) {
	v, ok, err := a.number(name)
	if err != nil || !ok {
		return 0, ok, err
	}
	if v != math.Trunc(v) {
		return 0, false, fmt.Errorf("argument %q must be a whole number, got %g", name, v)
	}
	return int(v), true, nil
}

func (a arguments) requireInt(name string) (int, error) {
	v, ok, err := a.integer(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("required argument %q not found", name)
	}
	return v, nil
}

// flag returns a boolean argument, false when absent
func (a arguments) flag(name string) (bool, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return false, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q must be a boolean, got %T", name, raw)
	}
	return v, nil
}

// pointer is the drag target of an update, nil when absent
func (a arguments) pointer() (*geometry.Point, error) {
	x, hasX, err := a.number("pointer_x")
	if err != nil {
		return nil, err
	}
	y, hasY, err := a.number("pointer_y")
	if err != nil {
		return nil, err
	}
	if hasX != hasY {
		return nil, fmt.Errorf("pointer_x and pointer_y must be given together")
	}
	if !hasX {
		return nil, nil
	}
	return &geometry.Point{X: x, Y: y}, nil
}

// argSetter copies one optional argument into its destination
type argSetter func(a arguments) error

// fill applies every setter and stops at the first bad argument
func (a arguments) fill(setters ...argSetter) error {
	for _, set := range setters {
		if err := set(a); err != nil {
			return err
		}
	}
	return nil
}

func numberArg(name string, dst *float64) argSetter {
	return func(a arguments) error {
		v, ok, err := a.number(name)
		if ok {
			*dst = v
		}
		return err
	}
}

func intArg(name string, dst *int) argSetter {
	return func(a arguments) error {
		v, ok, err := a.integer(name)
		if ok {
			*dst = v
		}
		return err
	}
}

func optionalNumberArg(name string, dst **float64) argSetter {
	return func(a arguments) error {
		v, ok, err := a.number(name)
		if ok {
			*dst = &v
		}
		return err
	}
}

func optionalIntArg(name string, dst **int) argSetter {
	return func(a arguments) error {
		v, ok, err := a.integer(name)
		if ok {
			*dst = &v
		}
		return err
	}
}
