package model

// Post is a single row read from the import source. Row is the 1-indexed data
// row number (the header row is not counted).
type Post struct {
	Row     int
	Content string
}
