package escpos

import "strings"

// DecodeText renders a command stream back into plain text, for
// transports that cannot speak ESC/POS (the document fallback).
// Formatting commands are dropped, feeds become blank lines, and
// stored-symbol prints and raster blocks leave placeholders so the
// reader knows to scan the original receipt.
func DecodeText(data []byte) string {
	var out strings.Builder

	i := 0
	for i < len(data) {
		b := data[i]
		switch b {
		case lf:
			out.WriteByte('\n')
			i++
		case esc:
			i += decodeESC(data[i:], &out)
		case gs:
			i += decodeGS(data[i:], &out)
		default:
			if b >= 0x20 {
				out.WriteByte(b)
			}
			i++
		}
	}
	return out.String()
}

// decodeESC consumes one ESC sequence and returns its length. A
// truncated sequence consumes the rest of the stream.
func decodeESC(data []byte, out *strings.Builder) int {
	if len(data) < 2 {
		return len(data)
	}
	switch data[1] {
	case '@':
		return 2
	case 'a', 'E', '-', 'M', 'J':
		return 3
	case 'd':
		if len(data) >= 3 {
			for n := 0; n < int(data[2]); n++ {
				out.WriteByte('\n')
			}
		}
		return 3
	case 'p':
		return 5
	default:
		return 2
	}
}

// decodeGS consumes one GS sequence and returns its length.
func decodeGS(data []byte, out *strings.Builder) int {
	if len(data) < 2 {
		return len(data)
	}
	switch data[1] {
	case '!', 'B', 'V', 'h', 'w', 'H':
		return 3
	case 'k':
		// function B: m, n, then n data bytes
		if len(data) < 4 {
			return len(data)
		}
		n := int(data[3])
		out.WriteString("[BARCODE]\n")
		return 4 + n
	case '(':
		if len(data) < 5 || data[2] != 'k' {
			return 3
		}
		n := int(data[3]) | int(data[4])<<8
		// cn=49 fn=81 prints the stored QR symbol
		if n >= 2 && len(data) >= 7 && data[5] == 49 && data[6] == 81 {
			out.WriteString("[QR]\n")
		}
		return 5 + n
	case 'v':
		// GS v 0: m, xL xH yL yH, then xBytes*y raster data
		if len(data) < 8 {
			return len(data)
		}
		wb := int(data[4]) | int(data[5])<<8
		h := int(data[6]) | int(data[7])<<8
		out.WriteString("[IMAGE]\n")
		return 8 + wb*h
	default:
		return 2
	}
}
