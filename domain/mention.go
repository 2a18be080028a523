package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// mentionPattern matches the assistant trigger anywhere in a message:
// case-insensitive, optional whitespace between '@' and 'ai', and no
// word boundary after it, so "@aide" still triggers. The missing
// boundary is a deliberate behavior choice pinned by tests.
var mentionPattern = regexp.MustCompile(`(?i)@\s*ai`)

// DetectMention reports whether the content addresses the assistant.
func DetectMention(content string) bool {
	return mentionPattern.MatchString(content)
}

// ExtractQuery strips every mention token from the content and returns
// the trimmed remainder. When stripping leaves nothing, the whole
// original message is used as the query.
func ExtractQuery(content string) string {
	cleaned := strings.TrimSpace(mentionPattern.ReplaceAllString(content, ""))
	if cleaned == "" {
		return content
	}
	return cleaned
}

// AIRequest is a pending generation. It lives only inside the
// coordinator's queue and while being processed; only its eventual
// output message is persisted.
type AIRequest struct {
	Query      string
	Requester  Identity
	RoomID     RoomID
	EnqueuedAt time.Time
}

// CorrelationID derives the id clients use to stitch start/chunk/end
// events of one response together.
func (r AIRequest) CorrelationID() string {
	return "ai_" + strconv.FormatInt(r.EnqueuedAt.UnixNano(), 10)
}
