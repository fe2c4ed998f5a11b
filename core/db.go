package core

// DBOrdering is one `?ordering=` term, eg. `-score` is {score false}.
type DBOrdering struct {
	Field     string
	Ascending bool
}
