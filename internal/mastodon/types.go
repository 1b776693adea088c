package mastodon

import "time"

// Account is the wire form of a Mastodon account, trimmed to the fields the
// pipeline consumes.
type Account struct {
	ID          string    `json:"id"`
	Acct        string    `json:"acct"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	URL         string    `json:"url"`
	Avatar      string    `json:"avatar"`
	Bot         bool      `json:"bot"`
	CreatedAt   time.Time `json:"created_at"`
}

// Status is the wire form of a Mastodon status.
type Status struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	URI         string    `json:"uri"`
	URL         string    `json:"url"`
	Content     string    `json:"content"` // HTML
	Language    string    `json:"language"`
	Visibility  string    `json:"visibility"`
	InReplyToID *string   `json:"in_reply_to_id"`
	Reblog      *Status   `json:"reblog"`
	Account     Account   `json:"account"`

	MediaAttachments []MediaAttachment `json:"media_attachments"`
}

// MediaAttachment is an attached image/video reference.
type MediaAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	Description string `json:"description"`
}

// IsReply reports whether the status is a reply to another status.
func (s *Status) IsReply() bool {
	return s.InReplyToID != nil && *s.InReplyToID != ""
}

// IsBoost reports whether the status is a reblog of another status.
func (s *Status) IsBoost() bool {
	return s.Reblog != nil
}
