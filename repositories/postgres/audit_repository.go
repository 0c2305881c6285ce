package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db        *DB
	joinUsers bool // false when audit logs live in a database without the users table
	logger    *zap.Logger
}

// NewAuditRepository creates a new audit repository.
// joinUsers enables username resolution from the users table.
func NewAuditRepository(db *DB, joinUsers bool, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:        db,
		joinUsers: joinUsers,
		logger:    logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, action, region, payload, done_by, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var payload sql.NullString
	if len(log.Payload) > 0 {
		payload = sql.NullString{String: string(log.Payload), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		string(log.Action),
		log.Region,
		payload,
		log.DoneBy,
		log.RequestID,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted",
		zap.String("id", log.ID.String()),
		zap.String("action", string(log.Action)),
		zap.String("request_id", log.RequestID))
	return nil
}

// List retrieves a filtered page of audit logs.
// The filter is expected to be normalized by the caller.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, int, error) {
	from, where, args := r.buildFilter(filter)

	var total int
	countQuery := "SELECT COUNT(*) " + from + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	usernameExpr := "a.done_by"
	if r.joinUsers {
		usernameExpr = "COALESCE(u.username, a.done_by)"
	}
	orderExpr := "a.created_at"
	if filter.SortBy == "username" {
		orderExpr = usernameExpr
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.action, a.region, a.payload, a.done_by, COALESCE(a.request_id, ''), a.created_at, %s
		%s%s
		ORDER BY %s %s, a.created_at DESC
		LIMIT $%d OFFSET $%d
	`, usernameExpr, from, where, orderExpr, direction, len(args)+1, len(args)+2)

	args = append(args, filter.Limit, filter.Offset())
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0, filter.Limit)
	for rows.Next() {
		log := &models.AuditLog{}
		var action string
		var payload sql.NullString
		if err := rows.Scan(
			&log.ID,
			&action,
			&log.Region,
			&payload,
			&log.DoneBy,
			&log.RequestID,
			&log.CreatedAt,
			&log.Username,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Action = models.AuditAction(action)
		log.Payload = payloadJSON(payload)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, total, nil
}

func (r *AuditRepository) buildFilter(filter models.AuditLogFilter) (string, string, []interface{}) {
	from := "FROM audit_logs a"
	if r.joinUsers {
		from += " LEFT JOIN users u ON u.email = a.done_by"
	}

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if filter.SearchUsername != "" {
		args = append(args, "%"+filter.SearchUsername+"%")
		if r.joinUsers {
			conditions = append(conditions, fmt.Sprintf("(u.username ILIKE $%d OR a.done_by ILIKE $%d)", len(args), len(args)))
		} else {
			conditions = append(conditions, fmt.Sprintf("a.done_by ILIKE $%d", len(args)))
		}
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		conditions = append(conditions, fmt.Sprintf("a.region = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("a.action = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	return from, where, args
}

// payloadJSON returns stored JSON as-is and quotes anything else
func payloadJSON(payload sql.NullString) json.RawMessage {
	if !payload.Valid || payload.String == "" {
		return nil
	}
	if json.Valid([]byte(payload.String)) {
		return json.RawMessage(payload.String)
	}
	quoted, _ := json.Marshal(payload.String)
	return quoted
}
