package usecase

import (
	"regexp"
	"strings"
)

// maxBodyChars bounds how much text is handed to the classifier.
const maxBodyChars = 8000

var (
	blockquoteRe = regexp.MustCompile(`(?is)<blockquote[^>]*>.*?</blockquote>`)
	gmailQuoteRe = regexp.MustCompile(`(?is)<div[^>]*class="gmail_quote[^>]*>.*$`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)

	quoteSeparators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*On .* wrote:\s*$`),
		regexp.MustCompile(`(?i)^\s*From:\s.*$`),
		regexp.MustCompile(`(?i)^\s*-----Original Message-----\s*$`),
		regexp.MustCompile(`(?i)^\s*Sent:\s.*$`),
		regexp.MustCompile(`(?i)^\s*To:\s.*$`),
	}
)

// StripHTML reduces an HTML fragment to its visible text.
func StripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	return strings.Join(strings.Fields(s), " ")
}

// CleanBody returns only the sender's own text: quoted history, reply
// markers and markup are stripped, and the result is capped at
// maxBodyChars for the classifier.
func CleanBody(body string, isHTML bool) string {
	text := body
	if isHTML {
		text = blockquoteRe.ReplaceAllString(text, "")
		text = gmailQuoteRe.ReplaceAllString(text, "")
		text = tagRe.ReplaceAllString(text, "\n")
		text = strings.ReplaceAll(text, "&nbsp;", " ")
		text = strings.ReplaceAll(text, "&lt;", "<")
		text = strings.ReplaceAll(text, "&gt;", ">")
		text = strings.ReplaceAll(text, "&amp;", "&")
		text = strings.ReplaceAll(text, "&quot;", "\"")
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			break
		}
		if matchesSeparator(line) {
			break
		}
		out = append(out, line)
	}

	cleaned := strings.TrimSpace(strings.Join(out, "\n"))
	if len(cleaned) > maxBodyChars {
		cleaned = cleaned[:maxBodyChars]
	}
	return cleaned
}

func matchesSeparator(line string) bool {
	for _, re := range quoteSeparators {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
