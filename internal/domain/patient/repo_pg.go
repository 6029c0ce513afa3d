package patient

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// -- PostgreSQL Repository --

// PatientRepoPG stores the dataset in the patient_data and lab_data tables.
// The ehr_data view joins them on patient_id.
type PatientRepoPG struct {
	db pgConn
}

// NewPatientRepoPG returns a repository backed by pool.
func NewPatientRepoPG(pool *pgxpool.Pool) *PatientRepoPG {
	return &PatientRepoPG{db: &pgxWrapper{q: pool, pool: pool}}
}

var (
	patientColumns = []string{"ordinal", "patient_id", "gender", "date_of_birth", "race",
		"marital_status", "language", "percent_below_poverty"}
	labColumns = []string{"ordinal", "patient_id", "admission_id", "lab_name", "lab_value",
		"lab_units", "lab_date"}
)

const (
	patientSelect = `SELECT patient_id, gender, date_of_birth, race, marital_status, language, percent_below_poverty
		FROM patient_data`
	labSelect = `SELECT patient_id, admission_id, lab_name, lab_value, lab_units, lab_date
		FROM lab_data`
)

func (r *PatientRepoPG) List(ctx context.Context) ([]*Patient, error) {
	demographics, err := r.queryPatients(ctx, patientSelect+` ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	labs, err := r.queryLabs(ctx, labSelect+` ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}

	byPatient := make(map[string][]*Lab)
	for _, l := range labs {
		byPatient[l.PatientID] = append(byPatient[l.PatientID], l)
	}
	patients := make([]*Patient, 0, len(demographics))
	for _, p := range demographics {
		patients = append(patients, NewPatient(p, byPatient[p.ID]))
	}
	return patients, nil
}

func (r *PatientRepoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	demographics, err := r.queryPatients(ctx, patientSelect+` WHERE patient_id = $1 ORDER BY ordinal LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("get patient %q: %w", id, err)
	}
	if len(demographics) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPatientNotFound, id)
	}
	labs, err := r.queryLabs(ctx, labSelect+` WHERE patient_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("get labs for %q: %w", id, err)
	}
	return NewPatient(demographics[0], labs), nil
}

// ReplaceAll truncates both tables and copies patients and their labs in a
// single transaction.
func (r *PatientRepoPG) ReplaceAll(ctx context.Context, patients []*Patient) (int, error) {
	var labs []*Lab
	for _, p := range patients {
		labs = append(labs, p.Labs...)
	}

	err := r.db.InTx(ctx, func(tx pgConn) error {
		if err := tx.Exec(ctx, `TRUNCATE lab_data, patient_data`); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"patient_data"}, patientColumns,
			pgx.CopyFromSlice(len(patients), func(i int) ([]any, error) {
				p := patients[i]
				return []any{i + 1, p.ID, p.Gender, p.DateOfBirth, p.Race,
					p.MaritalStatus, p.Language, p.PercentBelowPoverty}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy patients: %w", err)
		}
		if n != int64(len(patients)) {
			return fmt.Errorf("copy patients: wrote %d of %d rows", n, len(patients))
		}

		n, err = tx.CopyFrom(ctx, pgx.Identifier{"lab_data"}, labColumns,
			pgx.CopyFromSlice(len(labs), func(i int) ([]any, error) {
				l := labs[i]
				return []any{i + 1, l.PatientID, l.AdmissionID, l.Name, l.Value, l.Units, l.Date}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy labs: %w", err)
		}
		if n != int64(len(labs)) {
			return fmt.Errorf("copy labs: wrote %d of %d rows", n, len(labs))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace dataset: %w", err)
	}
	return len(patients), nil
}

// FindByLabThreshold evaluates the lab predicate over the ehr_data view.
func (r *PatientRepoPG) FindByLabThreshold(ctx context.Context, labName string, cmp Comparator, value float64) ([]string, error) {
	if _, err := ParseComparator(string(cmp)); err != nil {
		return nil, err
	}
	// cmp is one of two validated constants, so formatting it into the query is safe.
	query := fmt.Sprintf(`SELECT DISTINCT patient_id FROM ehr_data
		WHERE lab_name = $1 AND lab_value %s $2`, cmp)

	rows, err := r.db.Query(ctx, query, labName, value)
	if err != nil {
		return nil, fmt.Errorf("find by lab threshold: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan patient id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patient ids: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *PatientRepoPG) queryPatients(ctx context.Context, sql string, args ...any) ([]Patient, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Gender, &p.DateOfBirth, &p.Race,
			&p.MaritalStatus, &p.Language, &p.PercentBelowPoverty); err != nil {
			return nil, err
		}
		p.DateOfBirth = DateOf(p.DateOfBirth)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepoPG) queryLabs(ctx context.Context, sql string, args ...any) ([]*Lab, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Lab
	for rows.Next() {
		var l Lab
		var date time.Time
		if err := rows.Scan(&l.PatientID, &l.AdmissionID, &l.Name, &l.Value, &l.Units, &date); err != nil {
			return nil, err
		}
		l.Date = DateOf(date)
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// pgConn narrows pgx to what the repository uses so tests can supply a fake.
// ---------------------------------------------------------------------------

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (pgRows, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	// InTx runs fn inside a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(tx pgConn) error) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type pgxWrapper struct {
	q    querier
	pool *pgxpool.Pool
}

func (w *pgxWrapper) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := w.q.Exec(ctx, sql, args...)
	return err
}

func (w *pgxWrapper) Query(ctx context.Context, sql string, args ...any) (pgRows, error) {
	rows, err := w.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (w *pgxWrapper) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	return w.q.CopyFrom(ctx, table, columns, src)
}

func (w *pgxWrapper) InTx(ctx context.Context, fn func(tx pgConn) error) error {
	if w.pool == nil {
		// Already inside a transaction.
		return fn(w)
	}
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		return fn(&pgxWrapper{q: tx})
	})
}
