package normalize

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/okian/gamesdesk/internal/domain/model"
)

const (
	maxAnswerRunes   = 3000
	ellipsis         = "…"
	maxSubjectAnswer = 80
)

var (
	replyPrefix   = regexp.MustCompile(`(?i)^\s*(re|fwd?|fw)\s*:\s*`)
	subjectAnswer = regexp.MustCompile(`(?i)answer\s*[:\-]\s*(.+)`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)

	cutPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^sent from my .*$`),
		regexp.MustCompile(`(?i)^sent from yahoo mail.*$`),
		regexp.MustCompile(`(?i)^get outlook for.*$`),
		regexp.MustCompile(`(?i)^on .+ wrote:$`),
		regexp.MustCompile(`(?i)^from: .+$`),
		regexp.MustCompile(`^(--|—+|–{2,}|_{3,})$`),
		regexp.MustCompile(`(?i)^this message is being sent to you because you are a moderator of the group.*$`),
	}
)

// bodyText picks the message text: the first text/plain part anywhere in
// the tree, else the first text/html part converted to text, else a body
// attached to the root part.
func bodyText(root *model.MessagePart) string {
	if root == nil {
		return ""
	}
	if p := findPart(root, "text/plain"); p != nil {
		return strings.TrimSpace(string(p.Body))
	}
	if p := findPart(root, "text/html"); p != nil {
		return htmlToText(string(p.Body))
	}
	if !strings.HasPrefix(strings.ToLower(root.MimeType), "multipart/") {
		return strings.TrimSpace(string(root.Body))
	}
	return ""
}

func findPart(p *model.MessagePart, mime string) *model.MessagePart {
	if strings.EqualFold(p.MimeType, mime) && len(bytes.TrimSpace(p.Body)) > 0 {
		return p
	}
	for _, child := range p.Parts {
		if child == nil {
			continue
		}
		if found := findPart(child, mime); found != nil {
			return found
		}
	}
	return nil
}

// htmlToText drops script and style content, turns line and paragraph
// breaks into newlines and strips the remaining markup.
func htmlToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.TrimSpace(b.String())
			}
			out := manyNewlines.ReplaceAllString(b.String(), "\n\n")
			return strings.TrimSpace(out)
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "br":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "li", "tr":
				b.WriteByte('\n')
			}
		}
	}
}

// subjectFallback extracts an answer from a subject line when a message
// has no body.
func subjectFallback(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := replyPrefix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}
	if m := subjectAnswer.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if utf8.RuneCountInString(s) <= maxSubjectAnswer {
		return s
	}
	return ""
}

// cleanAnswer cuts the text at the first signature or quote boundary and
// caps its length.
func cleanAnswer(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if isBoundary(strings.TrimSpace(line)) {
			break
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if utf8.RuneCountInString(out) > maxAnswerRunes {
		out = strings.TrimRight(string([]rune(out)[:maxAnswerRunes]), " \t\n") + ellipsis
	}
	return out
}

func isBoundary(line string) bool {
	for _, p := range cutPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
