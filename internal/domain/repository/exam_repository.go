package repository

import (
	"context"

	"github.com/kakomonhub/api/internal/domain/entity"
)

// ExamFilter narrows listing; zero values mean no constraint.
type ExamFilter struct {
	Faculty    string
	CourseName string
	Limit      int
}

// ExamRepository defines persistence for shared exam papers.
type ExamRepository interface {
	Create(ctx context.Context, e *entity.ExamPaper) error
	GetByID(ctx context.Context, id string) (*entity.ExamPaper, error)
	List(ctx context.Context, f ExamFilter) ([]*entity.ExamPaper, error)
}
