// Package dataimport builds recordings and sessions from external
// source data: AAA ultrasound exports with their prompt and parameter
// files, WAV audio, and TextGrid annotations.
package dataimport

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// promptTimeLayout is the date format AAA writes into prompt files.
const promptTimeLayout = "02/01/2006 15:04:05"

// Prompt is the parsed content of an AAA prompt file: the prompt text
// on the first line, the recording time on the second, and optionally
// a comma-separated participant field on the third.
type Prompt struct {
	Prompt          string
	TimeOfRecording time.Time
	ParticipantID   string
}

// ParsePrompt parses an AAA prompt file.
func ParsePrompt(data []byte) (*Prompt, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("dataimport: prompt file has %d lines, want at least 2", len(lines))
	}

	when, err := time.Parse(promptTimeLayout, strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, fmt.Errorf("dataimport: parse recording time: %w", err)
	}

	p := &Prompt{
		Prompt:          strings.TrimSpace(lines[0]),
		TimeOfRecording: when,
	}
	if len(lines) > 2 && strings.TrimSpace(lines[2]) != "" {
		p.ParticipantID = strings.TrimSpace(strings.Split(lines[2], ",")[0])
	}
	return p, nil
}

// ParseUltrasoundParams parses an AAA ultrasound parameter file
// (US.txt or .param): one key=value pair per line. Values are decoded
// as int, then float, then kept as bare strings.
func ParseUltrasoundParams(data []byte) (map[string]any, error) {
	params := make(map[string]any)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("dataimport: malformed parameter line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if n, err := strconv.Atoi(value); err == nil {
			params[key] = n
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = f
		} else {
			params[key] = value
		}
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("dataimport: no parameters found")
	}
	return params, nil
}
