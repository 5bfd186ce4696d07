package domain

// Currency symbol positions.
const (
	CurrencyPosLeft       = "left"
	CurrencyPosLeftSpace  = "left_space"
	CurrencyPosRight      = "right"
	CurrencyPosRightSpace = "right_space"
)

// CurrencyInfo is the store-wide currency configuration.
type CurrencyInfo struct {
	Code              string
	Symbol            string
	MinorUnit         int
	DecimalSeparator  string
	ThousandSeparator string
	Position          string
}

// Prefix returns the symbol prefix derived from the position setting.
func (c CurrencyInfo) Prefix() string {
	switch c.Position {
	case CurrencyPosLeftSpace:
		return c.Symbol + " "
	case CurrencyPosLeft:
		return c.Symbol
	}
	return ""
}

// Suffix returns the symbol suffix derived from the position setting.
func (c CurrencyInfo) Suffix() string {
	switch c.Position {
	case CurrencyPosRightSpace:
		return " " + c.Symbol
	case CurrencyPosRight:
		return c.Symbol
	}
	return ""
}
