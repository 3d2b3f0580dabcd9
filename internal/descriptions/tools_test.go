package descriptions

import (
	"sort"
	"strings"
	"testing"
)

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		desc := GetToolDescription(name)
		if !strings.Contains(desc, "**When to use:**") {
			t.Errorf("%s: description has no usage section", name)
		}
	}

	if got := GetToolDescription("form_render_page"); got != "Tool description not available" {
		t.Errorf("Unknown tool description = %q", got)
	}
}

func TestGetAllToolNames(t *testing.T) {
	names := GetAllToolNames()
	if len(names) != 13 {
		t.Errorf("Expected 13 tools, got %d", len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("Tool names are not sorted: %v", names)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "form_") {
			t.Errorf("Tool %s lacks the form_ prefix", name)
		}
	}
}
