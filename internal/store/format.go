package store

import "strconv"

// formatFloat renders a score/float the canonical Redis way: the
// shortest decimal that round-trips, no trailing ".0" for whole
// numbers. Resolves the Open Question in spec §9 in favor of
// canonical-client compatibility over source byte-fidelity.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseInt(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
