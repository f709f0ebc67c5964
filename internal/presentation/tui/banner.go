package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`            _                  _ `, "#34d399"},
	{` __      __(_)_______ _ _ __ __| |`, "#2dd4bf"},
	{` \ \ /\ / /| |_  / _' | '__/ _' |`, "#22d3ee"},
	{`  \ V  V / | |/ / (_| | | | (_| |`, "#38bdf8"},
	{`   \_/\_/  |_/___\__,_|_|  \__,_|`, "#60a5fa"},
}

// PrintBanner writes the colored wizard banner followed by a status line.
func PrintBanner(w io.Writer, status string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if status != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, termenv.String("  "+status).Faint())
	}
	fmt.Fprintln(w)
}
