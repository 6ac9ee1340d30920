package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the TickStory banner, colored when the terminal allows it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  _   _      _        _                ", "#818cf8"},
		{" | |_(_)__ _| |__ ___| |_ ___ _ _ _  _ ", "#a78bfa"},
		{" |  _| / _| / /(_-<_  _/ _ \\ '_| || |", "#c084fc"},
		{"  \\__|_\\__|_\\_\\/__/ \\__\\___/_|  \\_, |", "#e879f9"},
		{"                                 |__/ ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
