package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hitchpath/hitchpath/internal/database"
)

// PostgresRepository stores users in the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectUser = `
	SELECT
		id, email, password_hash, google_sub, name, is_admin,
		learning_style, pace, career_path, skill_level,
		desired_skill, primary_language, short_term_goals, long_term_goals,
		created_at, updated_at
	FROM users
`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u     User
		prefs = &u.Preferences
		style string
		pace  string
		level string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.GoogleSub, &u.Name, &u.IsAdmin,
		&style, &pace, &prefs.CareerPath, &level,
		&prefs.DesiredSkill, &prefs.PrimaryLanguage, &prefs.ShortTermGoals, &prefs.LongTermGoals,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	prefs.LearningStyle = LearningStyle(style)
	prefs.Pace = Pace(pace)
	prefs.SkillLevel = SkillLevel(level)
	return &u, nil
}

// Get retrieves a user by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
}

// FindByEmail retrieves a user by normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE email = $1`, NormalizeEmail(email)))
}

// FindByGoogleSub retrieves a user by Google subject.
func (r *PostgresRepository) FindByGoogleSub(ctx context.Context, sub string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE google_sub = $1`, sub))
}

// Create inserts a user.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, google_sub, name, is_admin,
			learning_style, pace, career_path, skill_level,
			desired_skill, primary_language, short_term_goals, long_term_goals,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	p := u.Preferences
	_, err := r.pool.Exec(ctx, query,
		u.ID, NormalizeEmail(u.Email), u.PasswordHash, u.GoogleSub, u.Name, u.IsAdmin,
		string(p.LearningStyle), string(p.Pace), p.CareerPath, string(p.SkillLevel),
		p.DesiredSkill, p.PrimaryLanguage, p.ShortTermGoals, p.LongTermGoals,
		u.CreatedAt, u.UpdatedAt,
	)
	if database.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// UpdateProfile stores name and preferences.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, u *User) error {
	query := `
		UPDATE users SET
			name = $2,
			learning_style = $3,
			pace = $4,
			career_path = $5,
			skill_level = $6,
			desired_skill = $7,
			primary_language = $8,
			short_term_goals = $9,
			long_term_goals = $10,
			updated_at = $11
		WHERE id = $1
	`
	p := u.Preferences
	result, err := r.pool.Exec(ctx, query,
		u.ID, u.Name,
		string(p.LearningStyle), string(p.Pace), p.CareerPath, string(p.SkillLevel),
		p.DesiredSkill, p.PrimaryLanguage, p.ShortTermGoals, p.LongTermGoals,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LinkGoogle attaches a Google subject to an account.
func (r *PostgresRepository) LinkGoogle(ctx context.Context, id, sub string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET google_sub = $2, updated_at = NOW() WHERE id = $1`, id, sub)
	if err != nil {
		return fmt.Errorf("linking google account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
