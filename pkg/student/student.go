package student

import "errors"

var ErrStudentNotFound = errors.New("student not found")

// Student maps a canonical display name to the storage folder holding the student's material.
type Student struct {
	Name   string
	Folder string
}
