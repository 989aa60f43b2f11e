// Package textgrid parses Praat TextGrid files, the annotation format
// that accompanies speech recordings, and converts their tiers into
// modality annotations.
package textgrid

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/giuthas/patkit/internal/models"
)

var (
	numberRe = regexp.MustCompile(`^\s*(xmin|xmax|number)\s*=\s*([-0-9.eE+]+)`)
	textRe   = regexp.MustCompile(`^\s*(text|mark|name|class)\s*=\s*"((?:[^"]|"")*)"`)
	itemRe   = regexp.MustCompile(`^\s*item\s*\[\d+\]\s*:`)
)

// Interval is one labelled stretch of time in an interval tier. Point
// tiers are represented as zero-length intervals.
type Interval struct {
	XMin float64
	XMax float64
	Text string
}

// Tier is one named annotation layer of a TextGrid.
type Tier struct {
	Name      string
	PointTier bool
	Intervals []Interval
}

// Grid is a parsed TextGrid.
type Grid struct {
	XMin  float64
	XMax  float64
	Tiers []Tier
}

// Tier returns the tier with the given name, if present.
func (g *Grid) Tier(name string) (*Tier, bool) {
	for i := range g.Tiers {
		if g.Tiers[i].Name == name {
			return &g.Tiers[i], true
		}
	}
	return nil, false
}

// Parse reads a long-format TextGrid. The parser is line oriented and
// tolerant: unknown lines are skipped, and a truncated file yields the
// tiers parsed so far rather than an error.
func Parse(data []byte) (*Grid, error) {
	if !bytes.Contains(data, []byte("ooTextFile")) {
		return nil, fmt.Errorf("textgrid: not a TextGrid file")
	}

	grid := &Grid{}
	var current *Tier
	// pending collects xmin/xmax until the matching text line arrives.
	var pending Interval
	var havePending bool

	flush := func() {
		if current != nil && havePending {
			current.Intervals = append(current.Intervals, pending)
			havePending = false
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if itemRe.MatchString(line) {
			flush()
			grid.Tiers = append(grid.Tiers, Tier{})
			current = &grid.Tiers[len(grid.Tiers)-1]
			continue
		}

		if m := textRe.FindStringSubmatch(line); m != nil {
			value := strings.ReplaceAll(m[2], `""`, `"`)
			switch m[1] {
			case "class":
				if current != nil {
					current.PointTier = value == "TextTier"
				}
			case "name":
				if current != nil {
					current.Name = value
				}
			case "text", "mark":
				pending.Text = value
				if current != nil {
					if current.PointTier {
						pending.XMax = pending.XMin
					}
					current.Intervals = append(current.Intervals, pending)
				}
				havePending = false
			}
			continue
		}

		if m := numberRe.FindStringSubmatch(line); m != nil {
			value, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "xmin":
				if current == nil {
					grid.XMin = value
				} else {
					pending.XMin = value
					havePending = true
				}
			case "xmax":
				if current == nil {
					grid.XMax = value
				} else {
					pending.XMax = value
					havePending = true
				}
			case "number":
				// Point tier time stamp.
				pending.XMin = value
				pending.XMax = value
				havePending = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("textgrid: scan: %w", err)
	}
	return grid, nil
}

// Annotation converts a tier into a modality annotation: one entry per
// non-empty interval, keyed by interval start time, carrying the label
// and interval end.
func (t *Tier) Annotation() *models.Annotation {
	a := &models.Annotation{}
	for _, iv := range t.Intervals {
		if strings.TrimSpace(iv.Text) == "" {
			continue
		}
		a.Append(iv.XMin, map[string]any{
			"label": iv.Text,
			"end":   iv.XMax,
		})
	}
	return a
}
