package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mind-engage/moyenne/internal/grading"
)

// SQLStore keeps the catalog in the catalog_* tables created by db.Open.
type SQLStore struct {
	db *sql.DB
	// Seed is written on first Load when the tables are empty.
	Seed *Catalog
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Load reads the catalog in position order, seeding it first if needed.
func (s *SQLStore) Load(ctx context.Context) (Catalog, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_semesters`).Scan(&n); err != nil {
		return Catalog{}, err
	}
	if n == 0 {
		if s.Seed == nil {
			return Catalog{}, fmt.Errorf("%w: catalog tables are empty", ErrInvalid)
		}
		if err := s.Put(ctx, *s.Seed); err != nil {
			return Catalog{}, fmt.Errorf("seed catalog: %w", err)
		}
	}

	c := Catalog{}
	semIdx := map[string]int{}
	rows, err := s.db.QueryContext(ctx, `SELECT id,name FROM catalog_semesters ORDER BY position`)
	if err != nil {
		return Catalog{}, err
	}
	for rows.Next() {
		var sem grading.Semester
		if err := rows.Scan(&sem.ID, &sem.Name); err != nil {
			rows.Close()
			return Catalog{}, err
		}
		semIdx[sem.ID] = len(c.Semesters)
		c.Semesters = append(c.Semesters, sem)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Catalog{}, err
	}

	type ueKey struct{ sem, ue string }
	ueIdx := map[ueKey]int{}
	rows, err = s.db.QueryContext(ctx, `SELECT semester_id,id,name,coefficient FROM catalog_ues ORDER BY semester_id, position`)
	if err != nil {
		return Catalog{}, err
	}
	for rows.Next() {
		var semID string
		var ue grading.UE
		if err := rows.Scan(&semID, &ue.ID, &ue.Name, &ue.Coefficient); err != nil {
			rows.Close()
			return Catalog{}, err
		}
		si, ok := semIdx[semID]
		if !ok {
			continue
		}
		ueIdx[ueKey{semID, ue.ID}] = len(c.Semesters[si].UEs)
		c.Semesters[si].UEs = append(c.Semesters[si].UEs, ue)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Catalog{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT semester_id,ue_id,id,name,coefficient,type FROM catalog_modules ORDER BY semester_id, ue_id, position`)
	if err != nil {
		return Catalog{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var semID, ueID, typ string
		var m grading.Module
		if err := rows.Scan(&semID, &ueID, &m.ID, &m.Name, &m.Coefficient, &typ); err != nil {
			return Catalog{}, err
		}
		m.Type = grading.ModuleType(typ)
		si, ok := semIdx[semID]
		if !ok {
			continue
		}
		ui, ok := ueIdx[ueKey{semID, ueID}]
		if !ok {
			continue
		}
		c.Semesters[si].UEs[ui].Modules = append(c.Semesters[si].UEs[ui].Modules, m)
	}
	if err := rows.Err(); err != nil {
		return Catalog{}, err
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Put replaces the stored catalog in one transaction. Preset grades are not
// stored; the tables describe structure only.
func (s *SQLStore) Put(ctx context.Context, c Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM catalog_modules`, `DELETE FROM catalog_ues`, `DELETE FROM catalog_semesters`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	for si, sem := range c.Semesters {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_semesters (id,name,position) VALUES ($1,$2,$3)`,
			sem.ID, sem.Name, si); err != nil {
			return err
		}
		for ui, ue := range sem.UEs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_ues (id,semester_id,name,coefficient,position) VALUES ($1,$2,$3,$4,$5)`,
				ue.ID, sem.ID, ue.Name, ue.Coefficient, ui); err != nil {
				return err
			}
			for mi, m := range ue.Modules {
				if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_modules (id,semester_id,ue_id,name,coefficient,type,position) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
					m.ID, sem.ID, ue.ID, m.Name, m.Coefficient, string(m.Type), mi); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}
