package ticket

import (
	"bytes"
	"sort"
)

// Directive is a logical control code for a receipt printer.
type Directive int

const (
	Init Directive = iota
	BoldOn
	BoldOff
	AlignCenter
	AlignLeft
	Cut
)

func (d Directive) String() string {
	switch d {
	case Init:
		return "INIT"
	case BoldOn:
		return "BOLD_ON"
	case BoldOff:
		return "BOLD_OFF"
	case AlignCenter:
		return "ALIGN_CENTER"
	case AlignLeft:
		return "ALIGN_LEFT"
	case Cut:
		return "CUT"
	default:
		return "UNKNOWN"
	}
}

// Dialect maps each directive to the escape sequence a device understands.
type Dialect map[Directive][]byte

// ESCPOS is the dialect of common 58/80 mm thermal printers.
var ESCPOS = Dialect{
	Init:        {0x1B, 0x40},
	BoldOn:      {0x1B, 0x45, 0x01},
	BoldOff:     {0x1B, 0x45, 0x00},
	AlignCenter: {0x1B, 0x61, 0x01},
	AlignLeft:   {0x1B, 0x61, 0x00},
	Cut:         {0x1D, 0x56, 0x41, 0x03},
}

// Strip removes every directive of the dialect from stream, then drops any
// remaining control byte other than newline, leaving readable text.
func (d Dialect) Strip(stream []byte) []byte {
	seqs := make([][]byte, 0, len(d))
	for _, seq := range d {
		if len(seq) > 0 {
			seqs = append(seqs, seq)
		}
	}
	sort.Slice(seqs, func(i, j int) bool { return len(seqs[i]) > len(seqs[j]) })

	out := stream
	for _, seq := range seqs {
		out = bytes.ReplaceAll(out, seq, nil)
	}

	clean := make([]byte, 0, len(out))
	for _, c := range out {
		if c == '\n' || (c >= 0x20 && c != 0x7F) {
			clean = append(clean, c)
		}
	}
	return clean
}
