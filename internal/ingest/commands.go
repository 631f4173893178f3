package ingest

import (
	"strings"

	"scribe/internal/domain"
)

// Recognized command names.
const (
	CmdIngest  = "ingest"
	CmdVerbose = "verbose"
)

// Kind classifies an inbound message for dispatch. Every message gets exactly
// one kind.
type Kind int

const (
	// KindSelf is a message authored by the bot's own identity; dropped.
	KindSelf Kind = iota
	// KindOrdinary is regular traffic, forwarded to the datastore.
	KindOrdinary
	// KindCommand is a privileged command attempt, consumed by its handler
	// and never also forwarded as ordinary traffic.
	KindCommand
)

// Command is a parsed privileged command attempt.
type Command struct {
	Name string   // first whitespace-delimited token, prefix stripped
	Args []string // remaining tokens
}

// Router classifies inbound messages. The privileged set is immutable for the
// process lifetime.
type Router struct {
	prefix     string
	privileged map[string]struct{}
}

// NewRouter creates a router with the given command prefix and privileged
// author ids.
func NewRouter(prefix string, privileged []string) *Router {
	if prefix == "" {
		prefix = "!"
	}
	set := make(map[string]struct{}, len(privileged))
	for _, id := range privileged {
		set[id] = struct{}{}
	}
	return &Router{prefix: prefix, privileged: set}
}

// Classify assigns a kind to a message. A command requires a non-empty body
// starting with the prefix, at least one token after it, and a privileged
// author; anything else is ordinary traffic regardless of content.
func (r *Router) Classify(msg domain.Message) (Kind, *Command) {
	if msg.FromSelf {
		return KindSelf, nil
	}
	if !strings.HasPrefix(msg.Body, r.prefix) || len(msg.Body) <= len(r.prefix) {
		return KindOrdinary, nil
	}
	if _, ok := r.privileged[msg.Author.ID]; !ok {
		return KindOrdinary, nil
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Body, r.prefix))
	if len(fields) == 0 {
		return KindOrdinary, nil
	}
	return KindCommand, &Command{Name: fields[0], Args: fields[1:]}
}
