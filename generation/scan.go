package generation

import (
	"database/sql"

	"github.com/complyforge/complyforge/errors"
)

// jobScanArgs holds the nullable columns scanned alongside a job row.
type jobScanArgs struct {
	FrameworksJSON string
	Payload        sql.NullString
	ErrorMsg       sql.NullString
	StartedAt      sql.NullTime
	CompletedAt    sql.NullTime
}

func jobScanTargets(job *Job, args *jobScanArgs) []interface{} {
	return []interface{}{
		&job.ID,
		&job.HandlerName,
		&job.CompanyProfileID,
		&args.FrameworksJSON,
		&job.Status,
		&job.Progress,
		&job.DocumentsGenerated,
		&job.TotalDocuments,
		&args.ErrorMsg,
		&args.Payload,
		&job.CreatedAt,
		&args.StartedAt,
		&args.CompletedAt,
		&job.UpdatedAt,
	}
}

func processJobScanArgs(job *Job, args *jobScanArgs) error {
	frameworks, err := UnmarshalFrameworks(args.FrameworksJSON)
	if err != nil {
		return errors.Wrapf(err, "failed to unmarshal frameworks for job %s", job.ID)
	}
	job.Frameworks = frameworks

	if args.Payload.Valid {
		job.Payload = []byte(args.Payload.String)
	}
	if args.ErrorMsg.Valid {
		job.Error = args.ErrorMsg.String
	}
	if args.StartedAt.Valid {
		job.StartedAt = &args.StartedAt.Time
	}
	if args.CompletedAt.Valid {
		job.CompletedAt = &args.CompletedAt.Time
	}
	return nil
}

func scanJobFromRows(rows *sql.Rows, job *Job) error {
	args := &jobScanArgs{}
	if err := rows.Scan(jobScanTargets(job, args)...); err != nil {
		return err
	}
	return processJobScanArgs(job, args)
}

// standardJobSelectColumns is the column list shared by every job SELECT.
const standardJobSelectColumns = `id, handler_name, company_profile_id, frameworks, status,
	progress, documents_generated, total_documents,
	error, payload,
	created_at, started_at, completed_at, updated_at`
