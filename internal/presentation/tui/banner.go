package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the DomainDetect banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`  ___                  _       ___      _          _   `, "#818cf8"},
		{` |   \ ___ _ __  __ _ (_)_ _  |   \ ___| |_ ___ __| |_ `, "#a78bfa"},
		{` | |) / _ \ '  \/ _' || | ' \ | |) / -_)  _/ -_) _|  _|`, "#c084fc"},
		{` |___/\___/_|_|_\__,_||_|_||_||___/\___|\__\___\__|\__|`, "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
