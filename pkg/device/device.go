// Package device classifies the client hosting a map view as handset or desktop.
package device

import (
	"log/slog"
	"strings"

	"venuemap/pkg/engine"
)

// Handset width breakpoints, exclusive.
const (
	HandsetPortraitMaxWidth  = 600
	HandsetLandscapeMaxWidth = 960
)

// Viewport is the client's CSS viewport size in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Portrait reports whether the viewport is taller than wide. Square counts as portrait.
func (v Viewport) Portrait() bool { return v.Height >= v.Width }

// IsHandset applies the handset breakpoints for the viewport's orientation.
func IsHandset(v Viewport) bool {
	if v.Width <= 0 {
		return false
	}
	if v.Portrait() {
		return v.Width < HandsetPortraitMaxWidth
	}
	return v.Width < HandsetLandscapeMaxWidth
}

var mobileMarkers = []string{"Mobi", "Android", "iPhone", "iPod"}

// ClassifyUserAgent guesses the initial class before the first viewport report arrives.
func ClassifyUserAgent(ua string) bool {
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// Classifier tracks the device class of one client and notifies on transitions.
// It is driven from the view's dispatch goroutine.
type Classifier struct {
	handset   bool
	listeners engine.Listeners[bool]
	logger    *slog.Logger
}

// NewClassifier starts with the given class.
func NewClassifier(initialHandset bool) *Classifier {
	return &Classifier{handset: initialHandset, logger: slog.With("component", "device")}
}

// IsHandset reports the current class.
func (c *Classifier) IsHandset() bool { return c.handset }

// OnChange registers fn for class transitions and returns its release.
func (c *Classifier) OnChange(fn func(isHandset bool)) func() {
	return c.listeners.Add(fn)
}

// Update reclassifies from a viewport report. Listeners fire only when the class changes.
func (c *Classifier) Update(v Viewport) {
	next := IsHandset(v)
	if next == c.handset {
		return
	}
	c.handset = next
	c.logger.Debug("Device class changed", "handset", next, "width", v.Width, "height", v.Height)
	c.listeners.Fire(next)
}
