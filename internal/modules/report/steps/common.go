package steps

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
)

func stringFromAny(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func intFromAny(v any, def int) int {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return def
		}
		return int(x)
	case int:
		return x
	case int64:
		return int(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return def
}

func stringSliceFromAny(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		if s := stringFromAny(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		if s := stringFromAny(x); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mapSliceFromAny(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, x := range arr {
		if m, ok := x.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

// transcriptLines splits normalized text into its 1-based lines.
func transcriptLines(normalized string) []string {
	if strings.TrimSpace(normalized) == "" {
		return nil
	}
	return strings.Split(normalized, "\n")
}

// numbered renders lines[start-1:end] prefixed with their line numbers.
func numbered(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	var b strings.Builder
	for i := start; i <= end; i++ {
		b.WriteString(strconv.Itoa(i))
		b.WriteString(": ")
		b.WriteString(lines[i-1])
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func sceneText(lines []string, s report.Scene) string {
	return numbered(lines, s.Lines.Start, s.Lines.End)
}

func rosterText(players []jobs.Player) string {
	if len(players) == 0 {
		return "(none given)"
	}
	var b strings.Builder
	for _, p := range players {
		b.WriteString("- ")
		b.WriteString(p.Name)
		if p.Character != "" {
			b.WriteString(" plays ")
			b.WriteString(p.Character)
		}
		if p.SpeakerHint != "" {
			b.WriteString(" (transcript label: ")
			b.WriteString(p.SpeakerHint)
			b.WriteString(")")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func speakerMapText(m map[string]string) string {
	if len(m) == 0 {
		return "(none detected)"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(m[k])
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func strPtr(s string) *string { return &s }
