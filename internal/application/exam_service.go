package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/domain/entity"
	"github.com/kakomonhub/api/internal/domain/repository"
	pginfra "github.com/kakomonhub/api/internal/infrastructure/postgres"
	"github.com/kakomonhub/api/pkg/helpers"
)

// ExamService manages shared past exam papers: the file goes to object
// storage, the record to Postgres, and a search document to Elasticsearch.
type ExamService struct {
	Repo       repository.ExamRepository
	GCS        *storage.Client
	Bucket     string
	ES         *elasticsearch.Client
	ESIndex    string
	Logger     *logrus.Logger
	University string
}

func NewExamService(repo repository.ExamRepository, gcs *storage.Client, bucket string, es *elasticsearch.Client, esIndex string, logger *logrus.Logger, university string) *ExamService {
	return &ExamService{Repo: repo, GCS: gcs, Bucket: bucket, ES: es, ESIndex: esIndex, Logger: logger, University: university}
}

type UploadExamInput struct {
	Title      string
	Faculty    string
	Department string
	CourseName string
	Professor  string
	Year       int
}

// Upload stores the file and the record. The Postgres row is authoritative;
// a failed index write only degrades search.
func (s *ExamService) Upload(ctx context.Context, uploaderID string, in UploadExamInput, r io.Reader, filename, contentType string) (*entity.ExamPaper, error) {
	if s.GCS == nil || s.Bucket == "" {
		return nil, errors.New("object storage not configured")
	}
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("exams", uploaderID, id+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.Bucket, objectPath, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload exam file: %w", err)
	}

	e := &entity.ExamPaper{
		ID:         id,
		Title:      in.Title,
		University: s.University,
		Faculty:    in.Faculty,
		Department: in.Department,
		CourseName: in.CourseName,
		Professor:  in.Professor,
		Year:       in.Year,
		FileURL:    url,
		UploaderID: uploaderID,
	}
	if err := s.Repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("store exam record: %w", err)
	}
	_ = s.indexExam(ctx, e)
	return e, nil
}

func (s *ExamService) Get(ctx context.Context, id string) (*entity.ExamPaper, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pginfra.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *ExamService) List(ctx context.Context, f repository.ExamFilter) ([]*entity.ExamPaper, error) {
	return s.Repo.List(ctx, f)
}

func (s *ExamService) indexExam(ctx context.Context, e *entity.ExamPaper) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":          e.ID,
		"title":       e.Title,
		"university":  e.University,
		"faculty":     e.Faculty,
		"department":  e.Department,
		"course_name": e.CourseName,
		"professor":   e.Professor,
		"year":        e.Year,
		"file_url":    e.FileURL,
		"created_at":  e.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: e.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("exam_id", e.ID).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("exam_id", e.ID).Warn("es index response error")
	}
	return nil
}

// Search performs a multi_match over the searchable exam fields.
func (s *ExamService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "course_name^2", "professor", "faculty", "department"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
