package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholders recognized in a series filename template. Everything else in
// the template is literal text.
const (
	NumberToken    = "{number}"
	VariationToken = "{variation}"
	GarbageToken   = "{garbage}"
)

// Pattern is a compiled series filename template. It renders filesystem
// globs and remote search names, and extracts episode numbers back out of
// concrete filenames.
type Pattern struct {
	template string
	width    int
	display  string
	glob     string
	extract  *regexp.Regexp
}

// Compile builds a Pattern from a filename template and a zero-padding
// width (e.g. "2" pads episode 7 to "07"). The template must contain the
// {number} placeholder; {variation} and {garbage} are optional.
func Compile(template, width string) (*Pattern, error) {
	if !strings.Contains(template, NumberToken) {
		return nil, fmt.Errorf("template %q is missing the %s placeholder", template, NumberToken)
	}

	w, err := strconv.Atoi(width)
	if err != nil {
		return nil, fmt.Errorf("invalid number width %q: %w", width, err)
	}
	if w < 1 {
		return nil, fmt.Errorf("number width must be at least 1, got %d", w)
	}

	extract, err := buildExtract(template)
	if err != nil {
		return nil, fmt.Errorf("template %q does not compile: %w", template, err)
	}

	return &Pattern{
		template: template,
		width:    w,
		display:  replaceTokens(template, "*"),
		// a literal [ would open a character class for the glob matcher
		glob:    replaceTokens(strings.ReplaceAll(template, "[", "[[]"), "*"),
		extract: extract,
	}, nil
}

// buildExtract derives the extraction regexp: template literals are escaped,
// {number} captures one or more digits, {variation} optionally matches a
// revision marker (a letter followed by digits, e.g. "v2"), and {garbage}
// matches anything, non-greedily.
func buildExtract(template string) (*regexp.Regexp, error) {
	fragments := strings.Split(template, GarbageToken)
	for i, fragment := range fragments {
		quoted := regexp.QuoteMeta(fragment)
		quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta(NumberToken), `(\d+)`)
		quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta(VariationToken), `(?:[a-zA-Z]\d+)?`)
		fragments[i] = quoted
	}
	return regexp.Compile(strings.Join(fragments, `.*?`))
}

func replaceTokens(template, replacement string) string {
	out := strings.ReplaceAll(template, NumberToken, replacement)
	out = strings.ReplaceAll(out, VariationToken, replacement)
	return strings.ReplaceAll(out, GarbageToken, replacement)
}

// Display returns the template with every placeholder replaced by a
// wildcard, suitable for loose remote matching.
func (p *Pattern) Display() string {
	return p.display
}

// Glob returns the display pattern with literal brackets escaped so it is
// safe to hand to the filesystem glob matcher.
func (p *Pattern) Glob() string {
	return p.glob
}

// Query renders the search name for episode number n: the number is
// zero-padded to the configured width (never truncated), while variation
// and garbage stay wildcards for the remote side to match loosely.
func (p *Pattern) Query(n int) string {
	out := strings.ReplaceAll(p.template, NumberToken, fmt.Sprintf("%0*d", p.width, n))
	out = strings.ReplaceAll(out, VariationToken, "*")
	return strings.ReplaceAll(out, GarbageToken, "*")
}

// Extract recovers the episode number from a concrete filename. The second
// return value is false when the filename does not follow the template;
// callers treat that as "not one of ours", not as an error.
func (p *Pattern) Extract(name string) (int, bool) {
	matches := p.extract.FindStringSubmatch(name)
	if matches == nil {
		return 0, false
	}
	number, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return number, true
}
