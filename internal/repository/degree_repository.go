package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/degree-backend/internal/model"
)

// ErrNotFound is returned when no degree exists for the given ID.
var ErrNotFound = errors.New("degree not found")

// DegreeRepository is the Record Store: the authoritative copy of every degree.
type DegreeRepository interface {
	Create(ctx context.Context, fields *model.DegreeFields) (*model.Degree, error)
	FindByID(ctx context.Context, id string) (*model.Degree, error)
	Update(ctx context.Context, id string, fields *model.DegreeFields) (*model.Degree, error)
	Delete(ctx context.Context, id string) (*model.Degree, error)
	List(ctx context.Context) ([]*model.Degree, error)
}

type degreeRepository struct {
	db *pgxpool.Pool
}

func NewDegreeRepository(db *pgxpool.Pool) DegreeRepository {
	return &degreeRepository{db: db}
}

const degreeColumns = `id::text, name, years, level, average_salary`

func (r *degreeRepository) Create(ctx context.Context, fields *model.DegreeFields) (*model.Degree, error) {
	query := `
		INSERT INTO degrees (name, years, level, average_salary)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + degreeColumns
	return scanDegree(r.db.QueryRow(ctx, query,
		fields.Name, fields.Years, string(fields.Level), fields.AverageSalary))
}

func (r *degreeRepository) FindByID(ctx context.Context, id string) (*model.Degree, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse degree id: %w", err)
	}
	query := `SELECT ` + degreeColumns + ` FROM degrees WHERE id = $1`
	return scanDegree(r.db.QueryRow(ctx, query, uid))
}

func (r *degreeRepository) Update(ctx context.Context, id string, fields *model.DegreeFields) (*model.Degree, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse degree id: %w", err)
	}
	query := `
		UPDATE degrees
		SET name = $1, years = $2, level = $3, average_salary = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + degreeColumns
	return scanDegree(r.db.QueryRow(ctx, query,
		fields.Name, fields.Years, string(fields.Level), fields.AverageSalary, uid))
}

func (r *degreeRepository) Delete(ctx context.Context, id string) (*model.Degree, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse degree id: %w", err)
	}
	query := `DELETE FROM degrees WHERE id = $1 RETURNING ` + degreeColumns
	return scanDegree(r.db.QueryRow(ctx, query, uid))
}

func (r *degreeRepository) List(ctx context.Context) ([]*model.Degree, error) {
	rows, err := r.db.Query(ctx, `SELECT `+degreeColumns+` FROM degrees ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var degrees []*model.Degree
	for rows.Next() {
		d, err := scanDegree(rows)
		if err != nil {
			return nil, err
		}
		degrees = append(degrees, d)
	}
	return degrees, rows.Err()
}

func scanDegree(row pgx.Row) (*model.Degree, error) {
	d := &model.Degree{}
	var level string
	if err := row.Scan(&d.ID, &d.Name, &d.Years, &level, &d.AverageSalary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Level = model.Level(level)
	return d, nil
}
