package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/config"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitSchema creates the four collections if they do not exist yet. There is
// no migration story beyond this.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gyms (
			id BIGSERIAL PRIMARY KEY,
			gym_id TEXT UNIQUE NOT NULL,
			gym_name TEXT NOT NULL DEFAULT '',
			admin_chat_id TEXT NOT NULL DEFAULT '',
			welcome_message TEXT NOT NULL DEFAULT '',
			price_toman BIGINT NOT NULL DEFAULT 0,
			price_ton DOUBLE PRECISION NOT NULL DEFAULT 0,
			bank_card TEXT NOT NULL DEFAULT '',
			card_owner TEXT NOT NULL DEFAULT '',
			ton_wallet TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			gym_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			age INT NOT NULL DEFAULT 0,
			height DOUBLE PRECISION NOT NULL DEFAULT 0,
			weight DOUBLE PRECISION NOT NULL DEFAULT 0,
			gender TEXT NOT NULL DEFAULT '',
			goal TEXT NOT NULL DEFAULT '',
			dietary_restrictions TEXT NOT NULL DEFAULT '',
			preferred_foods TEXT NOT NULL DEFAULT '',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, gym_id)
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			id BIGSERIAL PRIMARY KEY,
			gym_id TEXT NOT NULL,
			program_hash TEXT NOT NULL,
			program_type TEXT NOT NULL,
			program_data TEXT NOT NULL,
			user_profile TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			gym_id TEXT NOT NULL,
			amount_toman BIGINT NOT NULL DEFAULT 0,
			amount_ton DOUBLE PRECISION NOT NULL DEFAULT 0,
			payment_method TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			admin_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			verified_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// EnsureGym inserts the gym if no row with its gym_id exists. An existing row
// is left untouched.
func (db *PostgresDB) EnsureGym(ctx context.Context, gym *models.Gym) error {
	query := `
        INSERT INTO gyms (gym_id, gym_name, admin_chat_id, welcome_message, price_toman, price_ton, bank_card, card_owner, ton_wallet)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (gym_id) DO NOTHING
    `

	_, err := db.pool.Exec(ctx, query,
		gym.GymID, gym.GymName, gym.AdminChatID, gym.WelcomeMessage,
		gym.PriceToman, gym.PriceTon, gym.BankCard, gym.CardOwner, gym.TonWallet,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure gym: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetGym(ctx context.Context, gymID string) (*models.Gym, error) {
	query := `
        SELECT id, gym_id, gym_name, admin_chat_id, welcome_message, price_toman, price_ton, bank_card, card_owner, ton_wallet, created_at
        FROM gyms
        WHERE gym_id = $1
    `

	var gym models.Gym
	err := db.pool.QueryRow(ctx, query, gymID).Scan(
		&gym.ID, &gym.GymID, &gym.GymName, &gym.AdminChatID, &gym.WelcomeMessage,
		&gym.PriceToman, &gym.PriceTon, &gym.BankCard, &gym.CardOwner, &gym.TonWallet,
		&gym.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gym: %w", err)
	}

	return &gym, nil
}

// SaveUser upserts the profile keyed on (user_id, gym_id). payment_status is
// not touched on conflict; only the payment workflow mutates it.
func (db *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (user_id, gym_id, username, full_name, age, height, weight, gender, goal, dietary_restrictions, preferred_foods)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (user_id, gym_id) DO UPDATE
        SET username = $3, full_name = $4, age = $5, height = $6, weight = $7,
            gender = $8, goal = $9, dietary_restrictions = $10, preferred_foods = $11,
            updated_at = NOW()
        RETURNING id
    `

	err := db.pool.QueryRow(ctx, query,
		user.UserID, user.GymID, user.Username, user.FullName,
		user.Age, user.Height, user.Weight, user.Gender, user.Goal,
		user.DietaryRestrictions, user.PreferredFoods,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetUser(ctx context.Context, userID int64, gymID string) (*models.User, error) {
	query := `
        SELECT id, user_id, gym_id, username, full_name, age, height, weight, gender, goal, dietary_restrictions, preferred_foods, payment_status, created_at, updated_at
        FROM users
        WHERE user_id = $1 AND gym_id = $2
    `

	var user models.User
	err := db.pool.QueryRow(ctx, query, userID, gymID).Scan(
		&user.ID, &user.UserID, &user.GymID, &user.Username, &user.FullName,
		&user.Age, &user.Height, &user.Weight, &user.Gender, &user.Goal,
		&user.DietaryRestrictions, &user.PreferredFoods, &user.PaymentStatus,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (db *PostgresDB) SetUserPaymentStatus(ctx context.Context, userID int64, gymID, status string) error {
	query := `
        UPDATE users
        SET payment_status = $3, updated_at = NOW()
        WHERE user_id = $1 AND gym_id = $2
    `

	_, err := db.pool.Exec(ctx, query, userID, gymID, status)
	if err != nil {
		return fmt.Errorf("failed to update user payment status: %w", err)
	}
	return nil
}

// SaveProgram always appends a fresh row; programs are never updated.
func (db *PostgresDB) SaveProgram(ctx context.Context, program *models.Program) error {
	query := `
        INSERT INTO programs (gym_id, program_hash, program_type, program_data, user_profile)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	err := db.pool.QueryRow(ctx, query,
		program.GymID, program.ProgramHash, program.ProgramType,
		program.ProgramData, program.UserProfile,
	).Scan(&program.ID)
	if err != nil {
		return fmt.Errorf("failed to save program: %w", err)
	}
	return nil
}

// GetCachedProgram returns the most recent program for (hash, gym), or nil on
// a cache miss.
func (db *PostgresDB) GetCachedProgram(ctx context.Context, programHash, gymID string) (*models.Program, error) {
	query := `
        SELECT id, gym_id, program_hash, program_type, program_data, user_profile, created_at
        FROM programs
        WHERE program_hash = $1 AND gym_id = $2
        ORDER BY created_at DESC
        LIMIT 1
    `

	var program models.Program
	err := db.pool.QueryRow(ctx, query, programHash, gymID).Scan(
		&program.ID, &program.GymID, &program.ProgramHash, &program.ProgramType,
		&program.ProgramData, &program.UserProfile, &program.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached program: %w", err)
	}

	return &program, nil
}

func (db *PostgresDB) SavePayment(ctx context.Context, payment *models.Payment) error {
	query := `
        INSERT INTO payments (user_id, gym_id, amount_toman, amount_ton, payment_method, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `

	err := db.pool.QueryRow(ctx, query,
		payment.UserID, payment.GymID, payment.AmountToman, payment.AmountTon,
		payment.PaymentMethod, payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (db *PostgresDB) ListPendingPayments(ctx context.Context, gymID string) ([]models.Payment, error) {
	query := `
        SELECT id, user_id, gym_id, amount_toman, amount_ton, payment_method, status, admin_verified, created_at, verified_at
        FROM payments
        WHERE status = 'pending' AND gym_id = $1
        ORDER BY created_at DESC
    `

	rows, err := db.pool.Query(ctx, query, gymID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.GymID, &p.AmountToman, &p.AmountTon,
			&p.PaymentMethod, &p.Status, &p.AdminVerified, &p.CreatedAt, &p.VerifiedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending payments: %w", err)
	}

	return payments, nil
}

func (db *PostgresDB) GetPendingPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `
        SELECT id, user_id, gym_id, amount_toman, amount_ton, payment_method, status, admin_verified, created_at, verified_at
        FROM payments
        WHERE id = $1 AND status = 'pending'
    `

	var p models.Payment
	err := db.pool.QueryRow(ctx, query, paymentID).Scan(
		&p.ID, &p.UserID, &p.GymID, &p.AmountToman, &p.AmountTon,
		&p.PaymentMethod, &p.Status, &p.AdminVerified, &p.CreatedAt, &p.VerifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending payment: %w", err)
	}

	return &p, nil
}

// ApprovePayment flips a pending payment to approved in a single conditional
// UPDATE and returns the owning (user_id, gym_id). A missing or already
// approved id returns (0, "", nil) — the statement itself guards against a
// double transition.
func (db *PostgresDB) ApprovePayment(ctx context.Context, paymentID int64) (int64, string, error) {
	query := `
        UPDATE payments
        SET status = 'approved', admin_verified = TRUE, verified_at = NOW()
        WHERE id = $1 AND status = 'pending'
        RETURNING user_id, gym_id
    `

	var userID int64
	var gymID string
	err := db.pool.QueryRow(ctx, query, paymentID).Scan(&userID, &gymID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to approve payment: %w", err)
	}

	return userID, gymID, nil
}
