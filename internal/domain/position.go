package domain

// Position is a named page slot that displays at most one ad.
type Position string

const (
	PosHeader        Position = "header"
	PosSidebar       Position = "sidebar"
	PosFooter        Position = "footer"
	PosInline        Position = "inline"
	PosHomeMid       Position = "home-mid"
	PosNumbersHeader Position = "numbers-header"
	PosNumbersInline Position = "numbers-inline"
	PosNumbersFooter Position = "numbers-footer"
	PosBlogHeader    Position = "blog-header"
	PosBlogInline    Position = "blog-inline"
	PosBlogFooter    Position = "blog-footer"
)

func (p Position) Valid() bool {
	switch p {
	case PosHeader, PosSidebar, PosFooter, PosInline, PosHomeMid,
		PosNumbersHeader, PosNumbersInline, PosNumbersFooter,
		PosBlogHeader, PosBlogInline, PosBlogFooter:
		return true
	}
	return false
}
