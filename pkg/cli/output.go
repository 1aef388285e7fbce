package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSize(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

// progressBar renders upload percentages on one terminal line
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	width int
}

func newProgressBar(w io.Writer, label string) *progressBar {
	return &progressBar{w: w, label: label, width: 30}
}

func (p *progressBar) Update(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	filled := pct * p.width / 100
	fmt.Fprintf(p.w, "\r%s [%s%s] %3d%%", p.label,
		strings.Repeat("=", filled), strings.Repeat(" ", p.width-filled), pct)
	if pct >= 100 {
		fmt.Fprintln(p.w)
	}
}
