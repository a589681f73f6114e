// Package capture holds the composer draft and the speech recognition state
// machine that feeds it.
package capture

import (
	"strings"
	"sync"

	"github.com/ashureev/kalnadai-care/internal/shared"
)

// Draft is the not-yet-submitted input.
type Draft struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"` // data URI
}

// Empty returns true if there is nothing worth submitting.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.Image == ""
}

// Composer owns the draft text and image. Edits are accepted at any time,
// including while speech recognition is listening.
type Composer struct {
	mu        sync.Mutex
	draft     Draft
	listeners shared.Listeners[Draft]
}

// NewComposer creates an empty composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Draft returns the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetText replaces the draft text.
func (c *Composer) SetText(text string) {
	c.update(func(d *Draft) { d.Text = text })
}

// AppendTranscript adds a speech transcript to the draft text, separated by a
// single space from what was already typed.
func (c *Composer) AppendTranscript(transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}
	c.update(func(d *Draft) {
		if d.Text == "" {
			d.Text = transcript
			return
		}
		d.Text = d.Text + " " + transcript
	})
}

// SetImage attaches an image data URI.
func (c *Composer) SetImage(dataURI string) {
	c.update(func(d *Draft) { d.Image = dataURI })
}

// ClearImage removes the attached image.
func (c *Composer) ClearImage() {
	c.update(func(d *Draft) { d.Image = "" })
}

// CanSubmit reports whether the draft may be sent given the loading flag.
func (c *Composer) CanSubmit(loading bool) bool {
	return !loading && !c.Draft().Empty()
}

// Take returns the draft and resets the composer.
func (c *Composer) Take() Draft {
	var taken Draft
	c.update(func(d *Draft) {
		taken = *d
		*d = Draft{}
	})
	return taken
}

// Restore puts back a draft returned by Take that could not be sent. Text
// typed since then is kept after the restored text; an image attached since
// then wins.
func (c *Composer) Restore(taken Draft) {
	if taken.Empty() {
		return
	}
	c.update(func(d *Draft) {
		switch {
		case d.Text == "":
			d.Text = taken.Text
		case taken.Text != "":
			d.Text = taken.Text + " " + d.Text
		}
		if d.Image == "" {
			d.Image = taken.Image
		}
	})
}

// OnChange registers fn to receive every new draft.
func (c *Composer) OnChange(fn func(Draft)) (remove func()) {
	return c.listeners.Add(fn)
}

func (c *Composer) update(fn func(*Draft)) {
	c.mu.Lock()
	fn(&c.draft)
	d := c.draft
	c.mu.Unlock()

	c.listeners.Notify(d)
}
