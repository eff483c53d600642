package entity

import "time"

// ExamPaper is a shared past exam. The file itself lives in object storage;
// FileURL is its public location.
type ExamPaper struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	University string    `json:"university"`
	Faculty    string    `json:"faculty"`
	Department string    `json:"department,omitempty"`
	CourseName string    `json:"course_name"`
	Professor  string    `json:"professor,omitempty"`
	Year       int       `json:"year"`
	FileURL    string    `json:"file_url"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}
