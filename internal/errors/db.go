package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// constraint describes what a named schema constraint protects.
type constraint struct {
	field  string
	entity string
}

// constraints lists every named constraint in the portal schema.
var constraints = map[string]constraint{
	"profiles_pkey":                           {field: "subject_id", entity: "Profile"},
	"profiles_role_check":                     {field: "role", entity: "Profile"},
	"profiles_department_check":               {field: "department", entity: "Profile"},
	"credentials_pkey":                        {field: "subject_id", entity: "Account"},
	"credentials_email_key":                   {field: "email", entity: "Account"},
	"password_reset_requests_subject_id_fkey": {field: "subject_id", entity: "Account"},
}

// tableEntities names tables the way users see them.
var tableEntities = map[string]string{
	"profiles":                "Profile",
	"credentials":             "Account",
	"password_reset_requests": "Password Reset",
}

var (
	// "Key (email)=(a@b) already exists." and FK details share this prefix.
	reDetailKey = regexp.MustCompile(`^Key \(([a-z_]+)\)=`)
	// "... is still referenced from table "x"." / "... is not present in table "x"."
	reDetailTable = regexp.MustCompile(`(still referenced from|not present in) table "?([^".]+)"?`)
)

// MapDBError turns driver errors into AppErrors:
// no rows is NotFound, unique is Conflict, foreign key is ForeignKey, check
// and not-null are Validation, and context errors are Timeout or Canceled.
// Other PostgreSQL errors become Internal; anything else is returned as is.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	info := describe(pgErr)
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{Code: ErrCodeConflict, Field: info.field, Cause: pgErr,
			Message: joinEntity(info.entity, "already exists with this value.", "This value already exists. Please choose a different one.")}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{Code: ErrCodeForeignKey, Field: info.field, Cause: pgErr, Message: foreignKeyMessage(pgErr, info)}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		msg := "Invalid data. Please check your input."
		if info.field != "" {
			msg = "The " + strings.ReplaceAll(info.field, "_", " ") + " field is missing or invalid."
		}
		return &AppError{Code: ErrCodeValidation, Field: info.field, Message: msg, Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
}

// IsUniqueViolation reports whether err carries a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// describe resolves field and entity from, in order: the column name, the
// constraint catalog and the error detail.
func describe(pgErr *pgconn.PgError) constraint {
	info := constraints[pgErr.ConstraintName]
	if pgErr.ColumnName != "" {
		info.field = pgErr.ColumnName
	}
	if info.field == "" {
		if m := reDetailKey.FindStringSubmatch(pgErr.Detail); m != nil {
			info.field = m[1]
		}
	}
	if info.entity == "" {
		info.entity = entityName(pgErr.TableName)
	}
	return info
}

func foreignKeyMessage(pgErr *pgconn.PgError, info constraint) string {
	if m := reDetailTable.FindStringSubmatch(pgErr.Detail); m != nil {
		if m[1] == "not present in" {
			return "Cannot complete operation because the referenced " + entityName(m[2]) + " does not exist."
		}
		return "Cannot delete because this item is in use by " + entityName(m[2]) + "."
	}
	if info.entity != "" && pgErr.ConstraintName != "" {
		return "Cannot complete operation because the referenced " + info.entity + " does not exist."
	}
	return joinEntity(info.entity, "is still in use.", "Cannot complete operation because this item is in use.")
}

func joinEntity(entity, suffix, fallback string) string {
	if entity == "" {
		return fallback
	}
	return entity + " " + suffix
}

// entityName maps a table to its user-facing name, title-casing unknown tables.
func entityName(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if table == "" {
		return ""
	}
	if name, ok := tableEntities[table]; ok {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(table, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
