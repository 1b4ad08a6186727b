package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	saved := Version
	defer func() { Version = saved }()

	specs := []struct {
		in  string
		exp string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"dev", "dev"},
	}
	for _, spec := range specs {
		Version = spec.in
		if got := Colored(); got != spec.exp {
			t.Errorf("expected %q; got %q", spec.exp, got)
		}
	}
}
