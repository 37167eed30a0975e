package models

// IndexEntry is one (entity id, assigned file name) pair of an Object Index
// together with the resolved path of the file.
type IndexEntry struct {
	ID   string
	Name string
	Path string
}

// Task pairs an input document with the output path a stage writes it to.
type Task struct {
	ID      string
	IsNew   bool
	InPath  string
	OutPath string
	Name    string
}
