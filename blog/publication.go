package blog

import "time"

// State is the lifecycle state of a post. It is derived entirely from the
// Published flag.
type State int

const (
	Draft State = iota
	Published
)

func (s State) String() string {
	if s == Published {
		return "published"
	}
	return "draft"
}

// State reports the lifecycle state of p.
func (p Post) State() State {
	if p.Published {
		return Published
	}
	return Draft
}

// TogglePublish applies the single lifecycle transition to p and returns the
// result. Publishing sets PublishedAt only when it has never been set;
// unpublishing keeps it, so the original publication date survives a
// republish.
func TogglePublish(p Post, now time.Time) Post {
	now = now.UTC()
	switch p.State() {
	case Draft:
		p.Published = true
		if p.PublishedAt == nil {
			t := now
			p.PublishedAt = &t
		}
	case Published:
		p.Published = false
	}
	p.UpdatedAt = now
	return p
}
