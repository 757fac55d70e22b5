// Package ical reads VTODO entries out of iCalendar data so open todos can
// be imported as tasks.
package ical

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Todo is one open VTODO entry.
type Todo struct {
	UID      string
	Summary  string
	StartsAt *time.Time
	DueAt    *time.Time
	Priority int
}

// DefaultPriority is the iCalendar "undefined" priority.
const DefaultPriority = 11

// ParseTodos reads an iCalendar stream and returns its actionable VTODOs.
// Completed entries (STATUS:COMPLETED, a COMPLETED stamp, or
// PERCENT-COMPLETE:100) and recurring entries (RRULE) are skipped, matching
// what a timer can meaningfully track.
func ParseTodos(r io.Reader) ([]Todo, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var todos []Todo
	var props map[string]string
	var lines []string

	// Unfold: a line starting with space or tab continues the previous one.
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if len(lines) > 0 {
				lines[len(lines)-1] += line[1:]
			}
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}

	for _, line := range lines {
		switch {
		case line == "BEGIN:VTODO":
			props = make(map[string]string)
		case line == "END:VTODO":
			if props != nil {
				if todo, ok := buildTodo(props); ok {
					todos = append(todos, todo)
				}
			}
			props = nil
		case props != nil:
			name, value, ok := splitContentLine(line)
			if ok {
				props[name] = value
			}
		}
	}

	return todos, nil
}

func splitContentLine(line string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	name = strings.ToLower(line[:idx])
	// Drop property parameters such as DUE;TZID=...
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	return name, line[idx+1:], true
}

func buildTodo(props map[string]string) (Todo, bool) {
	if props["status"] == "COMPLETED" {
		return Todo{}, false
	}
	if _, done := props["completed"]; done {
		return Todo{}, false
	}
	if props["percent-complete"] == "100" {
		return Todo{}, false
	}
	if _, recurring := props["rrule"]; recurring {
		return Todo{}, false
	}

	todo := Todo{
		UID:      valueOr(props, "uid", "???"),
		Summary:  valueOr(props, "summary", "???"),
		Priority: DefaultPriority,
	}
	if p, err := strconv.Atoi(props["priority"]); err == nil {
		todo.Priority = p
	}
	if ts, err := ParseDate(props["dtstart"]); err == nil {
		todo.StartsAt = &ts
	}
	if ts, err := ParseDate(props["due"]); err == nil {
		todo.DueAt = &ts
	}
	return todo, true
}

func valueOr(props map[string]string, key, fallback string) string {
	if v := props[key]; v != "" {
		return v
	}
	return fallback
}

// ParseDate parses the iCalendar date forms YYYYMMDD, YYYYMMDDTHHMMSS and
// YYYYMMDDTHHMMSSZ. A date-only value means UTC midnight; a trailing Z means
// UTC; a bare time is taken as local time.
func ParseDate(input string) (time.Time, error) {
	switch len(input) {
	case 8:
		return time.ParseInLocation("20060102", input, time.UTC)
	case 15:
		return time.ParseInLocation("20060102T150405", input, time.Local)
	case 16:
		return time.ParseInLocation("20060102T150405Z", input, time.UTC)
	default:
		return time.Time{}, fmt.Errorf("unrecognized ical date %q", input)
	}
}
