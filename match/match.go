package match

import (
	"regexp"
	"strings"

	"subgate/metadata"
)

// Signals are the per-request hints a filename is scored against. Absent
// signals are empty strings; a missing signal never penalizes a file.
type Signals struct {
	TitleSlug string
	Year      string
	SETag     string // sNNeNN, lowercase, zero-padded
}

var (
	apostropheRe = regexp.MustCompile(`['’]`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)

	// Language tokens checked in priority order; the first match wins.
	// Both simplified and traditional Chinese tokens map to "zh".
	langPatterns = []struct {
		re   *regexp.Regexp
		code string
	}{
		{regexp.MustCompile(`\b(zh|chs|sc|chi|zho|cn|chinese)\b`), "zh"},
		{regexp.MustCompile(`\b(zht|cht|tc)\b`), "zh"},
		{regexp.MustCompile(`\b(en|eng|english)\b`), "en"},
		{regexp.MustCompile(`\b(es|spa|spanish)\b`), "es"},
		{regexp.MustCompile(`\b(fr|fre|fra|french)\b`), "fr"},
		{regexp.MustCompile(`\b(de|ger|deu|german)\b`), "de"},
		{regexp.MustCompile(`\b(pt|por|portuguese|pt-br)\b`), "pt"},
		{regexp.MustCompile(`\b(ru|rus|russian)\b`), "ru"},
	}

	indicatorRe = regexp.MustCompile(`(?i)\b(sub|subs|subtitle|chs|cht|eng|vost)\b`)
)

// Normalize turns a title or filename into a comparable slug: lowercase,
// apostrophes dropped, every run of non-alphanumerics collapsed to a single
// dot, leading/trailing dots trimmed. Applied identically to metadata titles
// and filenames so containment checks are symmetric.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = apostropheRe.ReplaceAllString(s, "")
	s = nonAlnumRe.ReplaceAllString(s, ".")
	return strings.Trim(s, ".")
}

// DetectLanguage guesses a language code from word-bounded tokens in the
// filename. Always returns a code; "en" when nothing matches.
func DetectLanguage(name string) string {
	n := strings.ToLower(name)
	for _, p := range langPatterns {
		if p.re.MatchString(n) {
			return p.code
		}
	}
	return "en"
}

// BuildSignals derives match signals from the request and optional metadata.
// Missing metadata or a malformed series id leaves the corresponding signal
// empty rather than failing.
func BuildSignals(mediaType, mediaID string, meta *metadata.Meta) Signals {
	var s Signals
	if meta != nil {
		if meta.Name != "" {
			s.TitleSlug = Normalize(meta.Name)
		}
		s.Year = meta.Year
	}
	if mediaType == "series" {
		parts := strings.Split(mediaID, ":")
		if len(parts) >= 3 {
			s.SETag = "s" + pad2(parts[1]) + "e" + pad2(parts[2])
		}
	}
	return s
}

// Score rates how well a filename matches the signals. Signal bonuses are
// checked against the normalized filename; the generic subtitle-indicator
// bonus is checked against the raw filename so CJK markers survive.
func Score(name string, sig Signals) int {
	n := Normalize(name)
	score := 0
	if sig.TitleSlug != "" && strings.Contains(n, sig.TitleSlug) {
		score += 5
	}
	if sig.Year != "" && strings.Contains(n, sig.Year) {
		score += 2
	}
	if sig.SETag != "" && strings.Contains(n, sig.SETag) {
		score += 5
	}
	if indicatorRe.MatchString(name) || strings.Contains(name, "繁") || strings.Contains(name, "简") {
		score++
	}
	return score
}

func pad2(s string) string {
	for len(s) < 2 {
		s = "0" + s
	}
	return s
}
