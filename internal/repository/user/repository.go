package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/backorder/repository/user")

var (
	// ErrNotFound is returned when a user is missing.
	ErrNotFound = errors.New("user not found")
	// ErrNoSession is returned when a user has no live remember token.
	ErrNoSession = errors.New("no remember token")
)

const (
	usersTable    = "users"
	detailTable   = "users_detail"
	settingsTable = "users_settings"
	sessionTable  = "users_session"
)

// ProfileChanges is a partial profile update; nil fields are left untouched.
type ProfileChanges struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Repository encapsulates access to users and their satellite rows.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
	exec   *database.Executor
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, exec *database.Executor) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
		exec:   exec,
	}
}

// FindByID fetches a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.FindByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	return r.findOne(ctx, span, "u.id = ?", id)
}

// FindByUsername fetches a user by exact username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.FindByUsername", trace.WithAttributes(attribute.String("user.username", username)))
	defer span.End()

	return r.findOne(ctx, span, "u.username = ?", username)
}

func (r *Repository) findOne(ctx context.Context, span trace.Span, where string, arg any) (*entity.User, error) {
	u := new(entity.User)
	// Credential lookups read the writer so fresh registrations are visible.
	err := r.writer.NewSelect().Model(u).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return u, nil
}

func (r *Repository) profileQuery(model any) *bun.SelectQuery {
	return r.reader.NewSelect().Model(model).
		ColumnExpr("u.*").
		ColumnExpr("ud.email AS email").
		ColumnExpr("ud.phone AS phone").
		ColumnExpr("ust.first_time_login AS first_time_login").
		Join("LEFT JOIN users_detail AS ud ON ud.id = u.id").
		Join("LEFT JOIN users_settings AS ust ON ust.id = u.id")
}

// Profile fetches a user with detail and settings.
func (r *Repository) Profile(ctx context.Context, id int64) (*entity.UserProfile, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.Profile", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	p := new(entity.UserProfile)
	err := r.profileQuery(p).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return p, nil
}

// List returns user profiles ordered by name.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]entity.UserProfile, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.List")
	defer span.End()

	var out []entity.UserProfile
	q := r.profileQuery(&out).OrderExpr("u.name ASC").OrderExpr("u.id ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return out, nil
}

// Create inserts u together with its empty detail row and first-login settings row.
func (r *Repository) Create(ctx context.Context, u *entity.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	ctx, span := repoTracer.Start(ctx, "UserRepository.Create", trace.WithAttributes(attribute.String("user.username", u.Username)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(u).Exec(ctx); err != nil {
			return err
		}
		exec := r.exec.With(tx)
		if res := exec.Insert(ctx, detailTable, database.Fields{"id": u.ID, "email": "", "phone": ""}); !res.OK() {
			return res.Err
		}
		if res := exec.Insert(ctx, settingsTable, database.Fields{"id": u.ID, "first_time_login": true}); !res.OK() {
			return res.Err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// UpdatePassword replaces the stored hash and salt.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash, salt string) error {
	ctx, span := repoTracer.Start(ctx, "UserRepository.UpdatePassword", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	res := r.exec.Update(ctx, usersTable, id, database.Fields{"password": hash, "salt": salt})
	if !res.OK() {
		span.SetStatus(codes.Error, "update failed")
	}
	return res.Err
}

// UpdateProfile writes the present fields of ch across users and users_detail.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, ch ProfileChanges) error {
	ctx, span := repoTracer.Start(ctx, "UserRepository.UpdateProfile", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exec := r.exec.With(tx)
		if ch.Name != nil {
			if res := exec.Update(ctx, usersTable, id, database.Fields{"name": *ch.Name}); !res.OK() {
				return res.Err
			}
		}
		detail := database.Fields{}
		if ch.Email != nil {
			detail["email"] = *ch.Email
		}
		if ch.Phone != nil {
			detail["phone"] = *ch.Phone
		}
		if len(detail) > 0 {
			if res := exec.Update(ctx, detailTable, id, detail); !res.OK() {
				return res.Err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// MarkLoggedIn clears the first-login flag.
func (r *Repository) MarkLoggedIn(ctx context.Context, id int64) error {
	res := r.exec.Update(ctx, settingsTable, id, database.Fields{"first_time_login": false})
	return res.Err
}

// ReplaceSession stores hash as the user's only remember token digest.
func (r *Repository) ReplaceSession(ctx context.Context, userID int64, hash string) error {
	ctx, span := repoTracer.Start(ctx, "UserRepository.ReplaceSession", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exec := r.exec.With(tx)
		if res := exec.Delete(ctx, sessionTable, database.Eq("user_id", userID)); !res.OK() {
			return res.Err
		}
		if res := exec.Insert(ctx, sessionTable, database.Fields{"user_id": userID, "hash": hash}); !res.OK() {
			return res.Err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace session failed")
	}
	return err
}

// SessionHash returns the stored remember token digest for the user.
func (r *Repository) SessionHash(ctx context.Context, userID int64) (string, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.SessionHash", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	res := r.exec.Get(ctx, sessionTable, database.Eq("user_id", userID))
	if !res.OK() {
		span.SetStatus(codes.Error, "select failed")
		return "", res.Err
	}
	row, ok := res.First()
	if !ok {
		return "", ErrNoSession
	}
	return row.String("hash"), nil
}

// DeleteSession drops the user's remember token; absent tokens are not an error.
func (r *Repository) DeleteSession(ctx context.Context, userID int64) error {
	ctx, span := repoTracer.Start(ctx, "UserRepository.DeleteSession", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	res := r.exec.Delete(ctx, sessionTable, database.Eq("user_id", userID))
	if !res.OK() {
		span.SetStatus(codes.Error, "delete failed")
	}
	return res.Err
}

// FindBySessionHash returns the user whose remember token digest equals hash.
func (r *Repository) FindBySessionHash(ctx context.Context, hash string) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.FindBySessionHash")
	defer span.End()

	res := r.exec.Get(ctx, sessionTable, database.Eq("hash", hash))
	if !res.OK() {
		span.SetStatus(codes.Error, "select failed")
		return nil, res.Err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrNoSession
	}
	return r.findOne(ctx, span, "u.id = ?", row.Int64("user_id"))
}
