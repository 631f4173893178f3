package domain

// Document is the indexed representation of one chat message. The field set
// and nesting are fixed regardless of message content: mapping never fails,
// and Attachments is always present (empty slice, never null).
type Document struct {
	Timestamp   string               `json:"@timestamp"`
	Author      DocumentAuthor       `json:"author"`
	Body        string               `json:"body"`
	Channel     DocumentChannel      `json:"channel"`
	Attachments []DocumentAttachment `json:"attachments"`
}

type DocumentAuthor struct {
	FullUser string `json:"full_user"`
	Name     string `json:"name"`
	ID       string `json:"id"`
}

type DocumentChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DocumentAttachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}
