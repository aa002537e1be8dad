package ticket

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Builder accumulates text lines and directives into a single stream.
// Directives are written verbatim at the point they are invoked; repeating
// one is harmless.
type Builder struct {
	buf     bytes.Buffer
	dialect Dialect
	width   int
}

// NewBuilder returns a Builder for the given dialect and line width in runes.
func NewBuilder(dialect Dialect, width int) *Builder {
	if dialect == nil {
		dialect = ESCPOS
	}
	return &Builder{dialect: dialect, width: width}
}

// Directive appends the escape sequence of d.
func (b *Builder) Directive(d Directive) *Builder {
	b.buf.Write(b.dialect[d])
	return b
}

// Line appends text followed by a newline. Control bytes in text are dropped;
// Directive is the only way to emit escape sequences.
func (b *Builder) Line(text string) *Builder {
	b.buf.WriteString(printable(text))
	b.buf.WriteByte('\n')
	return b
}

// Field appends a label and a value justified to opposite ends of the line.
func (b *Builder) Field(label, value string) *Builder {
	label, value = printable(label), printable(value)
	gap := b.width - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		gap = 1
	}
	return b.Line(label + strings.Repeat(" ", gap) + value)
}

// Rule appends a full-width separator.
func (b *Builder) Rule() *Builder {
	return b.Line(strings.Repeat("-", max(b.width, 1)))
}

// Feed appends n blank lines.
func (b *Builder) Feed(n int) *Builder {
	for range n {
		b.buf.WriteByte('\n')
	}
	return b
}

// Bytes returns the encoded stream.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

func printable(text string) string {
	return strings.Map(func(r rune) rune {
		if (r < 0x20 && r != '\n') || r == 0x7F {
			return -1
		}
		return r
	}, text)
}
