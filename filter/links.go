package filter

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tripzi/functions/log"
)

var (
	markdownLinkRegex = regexp.MustCompile(`\(?\[[^\]]*\]\([^)]*\)\)?`)
	tripLinkRegex     = regexp.MustCompile(`\{([^}]+)\}`)
)

// LinkFilter rewrites link markup that the model streams in pieces. Chunks
// are buffered from the opening delimiter until the closing one arrives,
// then the buffered run is rewritten. An empty chunk marks end of stream
// and flushes the buffer.
type LinkFilter struct {
	re      *regexp.Regexp
	open    string
	closing string
	rewrite func(context.Context, string) string
	// bail proves the buffered text is not a link, e.g. "]" without "](" in
	// markdown
	bail func(chunk string) bool

	buffer    string
	buffering bool
}

// NewMarkdownLinkFilter strips raw markdown links from the model output,
// the app renders its own link affordances.
func NewMarkdownLinkFilter() *LinkFilter {
	return &LinkFilter{
		re:      markdownLinkRegex,
		open:    "[",
		closing: ")",
		rewrite: func(_ context.Context, text string) string {
			return markdownLinkRegex.ReplaceAllString(text, "")
		},
		bail: func(chunk string) bool {
			return strings.Contains(chunk, "]") && !strings.Contains(chunk, "](")
		},
	}
}

// NewTripLinkFilter converts {Label|tripID} markers into in-app trip links.
func NewTripLinkFilter() *LinkFilter {
	return &LinkFilter{
		re:      tripLinkRegex,
		open:    "{",
		closing: "}",
		rewrite: convertTripLinks,
	}
}

func (f *LinkFilter) ProcessChunk(ctx context.Context, chunk string) string {
	if chunk == "" { // empty chunk - end of stream
		f.buffering = false
		ret := f.buffer
		f.buffer = ""
		return f.rewrite(ctx, ret)
	}
	if f.re.MatchString(chunk) { // chunk holds a whole link, rewrite directly
		f.buffering = false
		ret := f.buffer + chunk
		f.buffer = ""
		return f.rewrite(ctx, ret)
	}
	if strings.Contains(chunk, f.open) {
		if f.buffering { // second opener, flush what was buffered and restart
			ret := f.buffer
			f.buffer = chunk
			return ret
		}
		f.buffering = true
		f.buffer += chunk
		return ""
	}
	if f.buffering && f.bail != nil && f.bail(chunk) { // not a link, stop buffering
		f.buffering = false
		ret := f.buffer
		f.buffer = ""
		return ret + chunk
	}
	if f.buffering && strings.Contains(chunk, f.closing) { // potential link, rewrite
		ret := f.buffer + chunk
		ret = f.rewrite(ctx, ret)
		f.buffering = false
		f.buffer = ""
		return ret
	}
	if f.buffering {
		f.buffer += chunk
		return ""
	}
	return chunk
}

// convertTripLinks turns {Label|tripID} into [Label](trips/tripID).
func convertTripLinks(ctx context.Context, text string) string {
	return tripLinkRegex.ReplaceAllStringFunc(text, func(match string) string {
		logger := log.LoggerFromContext(ctx)
		content := match[1 : len(match)-1]

		label, tripID, ok := strings.Cut(content, "|")
		if !ok {
			logger.Info("invalid trip link", slog.String("match", match))
			return ""
		}
		label = strings.TrimSpace(label)
		tripID = strings.TrimSpace(tripID)
		if tripID == "" {
			return label
		}
		return "[" + label + "](trips/" + tripID + ")"
	})
}
