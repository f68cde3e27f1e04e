package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/coursehub/internal/model"
	"github.com/sakif/coursehub/internal/repository"
)

var _ repository.CourseRepository = (*DB)(nil)

// ResolveCourse finds the course named name (case-insensitive), creating it
// when absent.
//
// INSERT OR IGNORE relies on the UNIQUE name_key constraint: a second
// insert of "ökonomie" after "Ökonomie" is silently skipped, and the
// SELECT then returns the original row with its original spelling.
func (db *DB) ResolveCourse(ctx context.Context, name string) (*model.Course, error) {
	key := model.CourseKey(name)
	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO courses (name, name_key) VALUES (?, ?)`, name, key,
	); err != nil {
		return nil, fmt.Errorf("sqlite: creating course %q: %w", name, err)
	}

	var c model.Course
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM courses WHERE name_key = ?`, key,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving course %q: %w", name, err)
	}
	return &c, nil
}

// ListCourses returns every course ordered by name. There is no pagination;
// the catalog is small.
func (db *DB) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM courses ORDER BY name_key, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing courses: %w", err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating courses: %w", err)
	}
	return courses, nil
}
