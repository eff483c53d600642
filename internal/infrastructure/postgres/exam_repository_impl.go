package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kakomonhub/api/internal/domain/entity"
	"github.com/kakomonhub/api/internal/domain/repository"
)

type ExamRepository struct {
	pool *pgxpool.Pool
}

func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func (r *ExamRepository) Create(ctx context.Context, e *entity.ExamPaper) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO exams (id, title, university, faculty, department, course_name, professor, year, file_url, uploader_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, e.ID, e.Title, e.University, e.Faculty, e.Department, e.CourseName, e.Professor, e.Year, e.FileURL, e.UploaderID)
	return row.Scan(&e.CreatedAt)
}

func (r *ExamRepository) GetByID(ctx context.Context, id string) (*entity.ExamPaper, error) {
	e := &entity.ExamPaper{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, university, faculty, department, course_name, professor, year, file_url, uploader_id, created_at
		FROM exams
		WHERE id = $1
	`, id)
	if err := row.Scan(&e.ID, &e.Title, &e.University, &e.Faculty, &e.Department,
		&e.CourseName, &e.Professor, &e.Year, &e.FileURL, &e.UploaderID, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *ExamRepository) List(ctx context.Context, f repository.ExamFilter) ([]*entity.ExamPaper, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, university, faculty, department, course_name, professor, year, file_url, uploader_id, created_at
		FROM exams
		WHERE ($1 = '' OR faculty = $1)
		  AND ($2 = '' OR course_name = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, f.Faculty, f.CourseName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.ExamPaper, 0, limit)
	for rows.Next() {
		e := &entity.ExamPaper{}
		if err := rows.Scan(&e.ID, &e.Title, &e.University, &e.Faculty, &e.Department,
			&e.CourseName, &e.Professor, &e.Year, &e.FileURL, &e.UploaderID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ repository.ExamRepository = (*ExamRepository)(nil)
