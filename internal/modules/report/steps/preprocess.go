package steps

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yungbote/sessionscribe-backend/internal/domain/jobs"
	"github.com/yungbote/sessionscribe-backend/internal/domain/report"
	"github.com/yungbote/sessionscribe-backend/internal/jobs/orchestrator"
)

const gameMaster = "Game Master"

var (
	speakerLabel = regexp.MustCompile(`^([\p{L}][\p{L}\p{N} .'_-]{0,39}?)\s*:\s+\S`)
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	gmLabels     = map[string]bool{"gm": true, "dm": true, "narrator": true, "game master": true, "dungeon master": true}
)

// Preprocess normalizes the transcript into dense non-empty lines and maps speaker labels to
// characters. It makes no model calls.
func Preprocess(ctx context.Context, deps Deps, rc *orchestrator.RunContext) (report.Partial, error) {
	normalized := normalizeTranscript(rc.State.SourceText)
	if normalized == "" {
		return report.Partial{}, fmt.Errorf("preprocess: transcript is empty after normalization")
	}
	lines := transcriptLines(normalized)
	speakers := buildSpeakerMap(lines, rc.Input.Players)
	rc.Log.Debug("transcript normalized", "lines", len(lines), "speakers", len(speakers))

	return report.Partial{
		NormalizedText: &normalized,
		SpeakerMap:     speakers,
		Trace:          []string{fmt.Sprintf("preprocess: %d lines, %d speakers", len(lines), len(speakers))},
	}, nil
}

func normalizeTranscript(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	out := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// buildSpeakerMap maps every label seen at the start of a line to a display name. Roster
// entries match on speaker hint or player name, case-insensitively.
func buildSpeakerMap(lines []string, players []jobs.Player) map[string]string {
	roster := map[string]string{}
	for _, p := range players {
		display := p.Name
		if p.Character != "" {
			display = fmt.Sprintf("%s (played by %s)", p.Character, p.Name)
		}
		for _, key := range []string{p.SpeakerHint, p.Name, p.Character} {
			if k := strings.ToLower(strings.TrimSpace(key)); k != "" {
				if _, taken := roster[k]; !taken {
					roster[k] = display
				}
			}
		}
	}

	seen := map[string]bool{}
	labels := []string{}
	for _, line := range lines {
		m := speakerLabel.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := strings.TrimSpace(m[1])
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	out := make(map[string]string, len(labels))
	for _, label := range labels {
		key := strings.ToLower(label)
		switch {
		case roster[key] != "":
			out[label] = roster[key]
		case gmLabels[key]:
			out[label] = gameMaster
		default:
			out[label] = label
		}
	}
	return out
}
