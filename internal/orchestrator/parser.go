package orchestrator

import (
	"strconv"
	"strings"
)

// equalsPlaceholder stands in for literal '=' characters inside marker text
// payloads. Workers substitute before printing so that key=value splitting
// cannot corrupt the payload; the parser reverses the substitution.
const equalsPlaceholder = "\x1f"

const defaultProgressLabel = "items"

// ParseLine classifies a single line of worker output into a typed event.
// Marker lines follow the grammar [NAME:field,field,...] with key=value
// fields. Anything malformed is not an error: it falls through to a plain
// log event. Lines that look like raw JSON belong to the result accumulator
// and produce no event here. The second return value is false when the line
// yields no event at all.
func ParseLine(line string, fromStderr bool) (Event, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Event{}, false
	}

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		if ev, ok := parseMarker(trimmed[1 : len(trimmed)-1]); ok {
			return ev, true
		}
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return Event{}, false
	}

	return Event{Type: EventLog, Message: trimmed, IsError: fromStderr}, true
}

func parseMarker(body string) (Event, bool) {
	name, rest, found := strings.Cut(body, ":")
	if !found {
		return Event{}, false
	}

	switch name {
	case "PHASE":
		if rest == "" {
			return Event{}, false
		}
		return Event{Type: EventPhase, Phase: rest}, true

	case "STAT":
		key, value, ok := strings.Cut(rest, "=")
		if !ok || key == "" {
			return Event{}, false
		}
		return Event{Type: EventStat, Key: key, Value: coerceNumber(unescape(value))}, true

	case "INFO":
		text, ok := strings.CutPrefix(rest, "message=")
		if !ok {
			return Event{}, false
		}
		return Event{Type: EventInfo, Message: unescape(text)}, true

	case "ERROR":
		kind, text, ok := cutField(rest, "type=", ",message=")
		if !ok {
			return Event{}, false
		}
		return Event{Type: EventError, ErrorType: kind, Error: unescape(text)}, true

	case "WARNING":
		phase, text, ok := cutField(rest, "phase=", ",message=")
		if !ok {
			return Event{}, false
		}
		return Event{Type: EventWarning, Phase: phase, Message: unescape(text)}, true

	case "PROGRESS":
		return parseProgress(rest)

	case "COST":
		values, ok := parseFloatPairs(rest)
		if !ok {
			return Event{}, false
		}
		return Event{Type: EventCost, Values: values}, true

	case "PERF":
		values, ok := parseFloatPairs(rest)
		if !ok {
			return Event{}, false
		}
		return Event{Type: EventPerf, Values: values}, true
	}

	return Event{}, false
}

// cutField extracts the two fields of markers shaped like
// "type=<a>,message=<b>". The trailing field may contain commas.
func cutField(s, first, second string) (string, string, bool) {
	rest, ok := strings.CutPrefix(s, first)
	if !ok {
		return "", "", false
	}
	idx := strings.Index(rest, second)
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+len(second):], true
}

func parseProgress(rest string) (Event, bool) {
	currentStr, tail, ok := cutField(rest, "current=", ",total=")
	if !ok {
		return Event{}, false
	}
	// tail is "<total>,label=<text>"; the label may contain commas
	idx := strings.Index(tail, ",label=")
	if idx < 0 {
		return Event{}, false
	}
	totalStr := tail[:idx]
	label := tail[idx+len(",label="):]

	current, err := strconv.Atoi(currentStr)
	if err != nil {
		return Event{}, false
	}
	total, err := strconv.Atoi(totalStr)
	if err != nil {
		return Event{}, false
	}

	label = unescape(label)
	if label == "" {
		label = defaultProgressLabel
	}
	return Event{Type: EventProgress, Current: current, Total: total, Label: label}, true
}

func parseFloatPairs(rest string) (map[string]float64, bool) {
	if rest == "" {
		return nil, false
	}
	values := make(map[string]float64)
	for _, pair := range strings.Split(rest, ",") {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		values[key] = v
	}
	return values, true
}

// coerceNumber turns a stat value into a float64 when it parses as a number,
// keeping it as string otherwise.
func coerceNumber(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func unescape(s string) string {
	return strings.ReplaceAll(s, equalsPlaceholder, "=")
}
