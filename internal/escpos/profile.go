package escpos

// PaperProfile describes the printable geometry of a thermal paper roll.
// Profiles are fixed per encoder instance; all width math in the encoder
// and the receipt layouts derives from these two numbers.
type PaperProfile struct {
	WidthMM      int
	DotsPerLine  int
	CharsPerLine int
}

var (
	Profile58 = PaperProfile{WidthMM: 58, DotsPerLine: 384, CharsPerLine: 32}
	Profile80 = PaperProfile{WidthMM: 80, DotsPerLine: 576, CharsPerLine: 48}
)

// ProfileForWidth maps a paper width in millimetres to its profile.
// Anything other than 58 falls back to the 80mm profile.
func ProfileForWidth(mm int) PaperProfile {
	if mm == 58 {
		return Profile58
	}
	return Profile80
}
