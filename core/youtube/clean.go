package youtube

import (
	"regexp"
	"strings"
)

var (
	cueTimingPattern  = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}[,.]\d{3}`)
	bracketTimestamp  = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\]`)
	inlineTimestamp   = regexp.MustCompile(`<\d{2}:\d{2}(:\d{2})?\.\d{3}>`)
	voiceTagPattern   = regexp.MustCompile(`(?i)</?v(\s+[^>]*)?>`)
	classTagPattern   = regexp.MustCompile(`(?i)</?c[.\w\s"=#\-%:]*>`)
	cueSettingPattern = regexp.MustCompile(`(?i)\b(align:\s*\w+|position:\s*[\d.]+%?|size:\s*[\d.]+%?|line:\s*[\d.]+%?)`)
	headerPattern     = regexp.MustCompile(`(?i)^(WEBVTT(\s.*)?|Kind:\s*\w+|Language:\s*[\w-]+)$`)
	sequencePattern   = regexp.MustCompile(`^\d+$`)
)

// CleanCaptions strips VTT/SRT timing, cue markup, headers and metadata
// blocks from a caption file and returns the remaining non-empty lines.
func CleanCaptions(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	inBlock := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if inBlock {
			if line == "" {
				inBlock = false
			}
			continue
		}
		upper := strings.ToUpper(line)
		if upper == "STYLE" || upper == "REGION" || upper == "NOTE" || strings.HasPrefix(upper, "NOTE ") {
			inBlock = true
			continue
		}
		if headerPattern.MatchString(line) || sequencePattern.MatchString(line) {
			continue
		}

		line = cueTimingPattern.ReplaceAllString(line, "")
		line = bracketTimestamp.ReplaceAllString(line, "")
		line = inlineTimestamp.ReplaceAllString(line, "")
		line = voiceTagPattern.ReplaceAllString(line, "")
		line = classTagPattern.ReplaceAllString(line, "")
		line = cueSettingPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)

		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
