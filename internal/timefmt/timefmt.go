package timefmt

import "time"

// Layout is the canonical textual timestamp used in the database and on the
// wire. Zero-padded and ordered coarse-to-fine, so well-formed values sort
// lexicographically in chronological order.
const Layout = "2006-01-02 15:04:05.000000"

func Now() string {
	return time.Now().UTC().Format(Layout)
}

func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}
