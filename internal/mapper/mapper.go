// Package mapper turns chat messages into datastore documents.
package mapper

import "scribe/internal/domain"

// timestampLayout renders second-precision ISO-8601 with a literal Z;
// timestamps are forced to UTC first.
const timestampLayout = "2006-01-02T15:04:05Z"

// Map converts a message into its indexed document. It is a total function:
// it never fails, regardless of message content, and always produces the same
// fixed top-level shape. Attachment order is preserved and content types are carried
// verbatim, including empty ones.
func Map(msg domain.Message) domain.Document {
	attachments := make([]domain.DocumentAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, domain.DocumentAttachment{
			Type: a.ContentType,
			URL:  a.URL,
		})
	}

	return domain.Document{
		Timestamp: msg.Timestamp.UTC().Format(timestampLayout),
		Author: domain.DocumentAuthor{
			FullUser: msg.Author.FullUser(),
			Name:     msg.Author.Name,
			ID:       msg.Author.ID,
		},
		Body: msg.Body,
		Channel: domain.DocumentChannel{
			ID:   msg.Channel.ID,
			Name: msg.Channel.Name,
		},
		Attachments: attachments,
	}
}
