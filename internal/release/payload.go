// Package release fans GitHub release events out to guild release channels.
package release

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ActionReleased is the only action that triggers notifications.
const ActionReleased = "released"

// ErrInvalidPayload indicates the webhook body is not a release event.
var ErrInvalidPayload = errors.New("release: invalid payload")

// User is a GitHub account reference.
type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Release is the release object of the webhook payload.
type Release struct {
	ID          int64   `json:"id"`
	TagName     string  `json:"tag_name"`
	Name        *string `json:"name"`
	Body        *string `json:"body"`
	HTMLURL     string  `json:"html_url"`
	Prerelease  bool    `json:"prerelease"`
	Draft       bool    `json:"draft"`
	CreatedAt   string  `json:"created_at"`
	PublishedAt *string `json:"published_at"`
	Author      User    `json:"author"`
}

// Repository is the repository object of the webhook payload.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// Payload is a GitHub release webhook event.
type Payload struct {
	Action     string     `json:"action"`
	Release    Release    `json:"release"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

// DisplayName returns the release name, falling back to the tag.
func (r Release) DisplayName() string {
	if r.Name != nil && *r.Name != "" {
		return *r.Name
	}
	return r.TagName
}

// ParseReleasePayload decodes a release event. It requires action to be a
// string and release and repository to be objects.
func ParseReleasePayload(raw []byte) (Payload, error) {
	var shape map[string]json.RawMessage
	if errUnmarshal := json.Unmarshal(raw, &shape); errUnmarshal != nil || shape == nil {
		return Payload{}, ErrInvalidPayload
	}
	if leadingByte(shape["action"]) != '"' {
		return Payload{}, fmt.Errorf("%w: action", ErrInvalidPayload)
	}
	for _, key := range []string{"release", "repository"} {
		if leadingByte(shape[key]) != '{' {
			return Payload{}, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
		}
	}

	var payload Payload
	if errDecode := json.Unmarshal(raw, &payload); errDecode != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, errDecode)
	}
	return payload, nil
}

// leadingByte returns the first non-whitespace byte of a JSON value.
func leadingByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b
		}
	}
	return 0
}
