// Package display turns the selected track into a fixed-width, scrolling
// status line.
package display

import (
	"strings"
	"unicode/utf8"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultMaxWidth is the display width in codepoints
	DefaultMaxWidth = 50

	separator    = " ~ "
	separatorLen = 3 // codepoints in separator

	italicOpen  = "<i>"
	italicClose = "</i>"
)

// Renderer owns the display buffer of the selected session.
// It is not safe for concurrent use.
type Renderer struct {
	logger   *zap.Logger
	emitter  domain.Emitter
	maxWidth int

	// text is escaped in static mode and raw in scrolling mode
	text      string
	runes     []rune
	width     int
	scrolling bool
	offset    int
	playing   bool
}

// NewRenderer creates a renderer that emits through emitter.
// Widths that cannot hold the separator plus one codepoint are raised to that minimum.
func NewRenderer(logger *zap.Logger, emitter domain.Emitter, maxWidth int) *Renderer {
	if maxWidth <= separatorLen {
		logger.Warn("Display width too small, raising to minimum",
			zap.Int("requested", maxWidth),
			zap.Int("minimum", separatorLen+1))
		maxWidth = separatorLen + 1
	}
	return &Renderer{
		logger:   logger,
		emitter:  emitter,
		maxWidth: maxWidth,
	}
}

// Rebuild replaces the display buffer with title and artist and resets the
// scroll offset.
func (r *Renderer) Rebuild(title, artist string) {
	hasSeparator := title != "" && artist != ""
	sep := ""
	if hasSeparator {
		sep = separator
	}

	r.offset = 0
	r.width = utf8.RuneCountInString(title) + utf8.RuneCountInString(sep) + utf8.RuneCountInString(artist)

	if r.width <= r.maxWidth {
		r.scrolling = false
		r.runes = nil
		r.text = Escape(title) + sep + Escape(artist)
		return
	}

	r.scrolling = true
	r.text = title + sep + artist
	r.runes = []rune(r.text)
}

// SetPlaying updates the playing flag and reports whether it changed
func (r *Renderer) SetPlaying(playing bool) bool {
	if r.playing == playing {
		return false
	}
	r.playing = playing
	return true
}

// Display emits the current window
func (r *Renderer) Display() {
	r.emit(r.line())
}

// Tick advances the scroll offset by one codepoint and emits. It does nothing
// in static mode.
func (r *Renderer) Tick() {
	if !r.scrolling {
		return
	}
	r.offset++
	r.Display()
}

// Clear empties the buffer, stops scrolling and emits the empty display
func (r *Renderer) Clear() {
	r.text = ""
	r.runes = nil
	r.width = 0
	r.offset = 0
	r.scrolling = false
	r.emit("")
}

// Scrolling reports whether the current content exceeds the display width
func (r *Renderer) Scrolling() bool {
	return r.scrolling
}

func (r *Renderer) line() string {
	text := r.window()
	if r.playing {
		return text
	}
	return italicOpen + text + italicClose
}

// window returns the escaped visible text. In scrolling mode it is a
// circular view over text+separator of exactly maxWidth codepoints.
func (r *Renderer) window() string {
	if !r.scrolling {
		return r.text
	}

	w := r.maxWidth
	if r.offset < r.width {
		remaining := r.width - r.offset
		if remaining >= w {
			return Escape(string(r.runes[r.offset : r.offset+w]))
		}

		var b strings.Builder
		b.WriteString(Escape(string(r.runes[r.offset:])))
		leftOver := w - remaining
		if leftOver <= separatorLen {
			b.WriteString(separator[:leftOver])
		} else {
			b.WriteString(separator)
			b.WriteString(Escape(string(r.runes[:leftOver-separatorLen])))
		}
		return b.String()
	}

	sepOffset := r.offset - r.width
	if sepOffset > separatorLen-1 {
		r.offset = 0
		return Escape(string(r.runes[:w]))
	}
	tail := separator[sepOffset:]
	return tail + Escape(string(r.runes[:w-len(tail)]))
}

func (r *Renderer) emit(text string) {
	if err := r.emitter.Emit(text); err != nil {
		r.logger.Error("Failed to emit status line", zap.Error(err))
	}
}
