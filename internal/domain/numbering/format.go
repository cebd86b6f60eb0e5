package numbering

import "fmt"

// DefaultPadWidth is the zero-pad width for the numeric part of a
// formatted document number.
const DefaultPadWidth = 6

// Format renders a sequence value as a human-readable document number,
// e.g. Format(DocTypeBill, period, 42, 6) -> "BILL202501-000042".
// Formatting is pure; uniqueness lives entirely in the numeric part.
func Format(docType DocType, period Period, value int64, padWidth int) string {
	if padWidth <= 0 {
		padWidth = DefaultPadWidth
	}
	return fmt.Sprintf("%s%s-%0*d", docType, period.Key, padWidth, value)
}
