package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the raffle engine tables if they do not exist yet.
// Counters (sold/reserved/available) are never stored on the raffle row;
// they are derived from raffle_numbers so they cannot drift.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		whatsapp TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS raffles (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		prize_name TEXT NOT NULL DEFAULT '',
		total_numbers INT NOT NULL,
		price_per_number NUMERIC(10,2) NOT NULL,
		fee_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		draw_date TIMESTAMPTZ,
		winner_number INT,
		winner_user_id BIGINT REFERENCES users(id),

		enable_purchase_bonus BOOLEAN NOT NULL DEFAULT FALSE,
		purchase_bonus_every INT NOT NULL DEFAULT 10,
		purchase_bonus_amount INT NOT NULL DEFAULT 1,

		enable_milestone_bonus BOOLEAN NOT NULL DEFAULT FALSE,
		milestone_quantity INT NOT NULL DEFAULT 50,
		milestone_prize_name TEXT NOT NULL DEFAULT '',

		enable_referrals BOOLEAN NOT NULL DEFAULT FALSE,
		inviter_bonus INT NOT NULL DEFAULT 2,
		invitee_bonus INT NOT NULL DEFAULT 1,
		progressive_bonus_every INT NOT NULL DEFAULT 0,
		referral_min_quantity INT NOT NULL DEFAULT 1,

		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS raffle_orders (
		id BIGSERIAL PRIMARY KEY,
		raffle_id BIGINT NOT NULL REFERENCES raffles(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		quantity INT NOT NULL,
		amount NUMERIC(10,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT NOT NULL DEFAULT 'pix',
		payment_id TEXT NOT NULL DEFAULT '',
		payment_data JSONB NOT NULL DEFAULT '{}',
		referral_code TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		paid_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS raffle_numbers (
		id BIGSERIAL PRIMARY KEY,
		raffle_id BIGINT NOT NULL REFERENCES raffles(id) ON DELETE CASCADE,
		number INT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		user_id BIGINT REFERENCES users(id),
		order_id BIGINT REFERENCES raffle_orders(id),
		source TEXT NOT NULL DEFAULT 'purchase',
		reserved_at TIMESTAMPTZ,
		reserved_expires_at TIMESTAMPTZ,
		sold_at TIMESTAMPTZ,
		UNIQUE (raffle_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_raffle_numbers_status
		ON raffle_numbers (raffle_id, status);
	CREATE INDEX IF NOT EXISTS idx_raffle_numbers_order
		ON raffle_numbers (order_id);

	CREATE TABLE IF NOT EXISTS referrals (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		raffle_id BIGINT NOT NULL REFERENCES raffles(id) ON DELETE CASCADE,
		inviter_id BIGINT NOT NULL REFERENCES users(id),
		invitee_id BIGINT REFERENCES users(id),
		status TEXT NOT NULL DEFAULT 'pending',
		inviter_numbers_allocated BOOLEAN NOT NULL DEFAULT FALSE,
		invitee_numbers_allocated BOOLEAN NOT NULL DEFAULT FALSE,
		clicks INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		redeemed_at TIMESTAMPTZ,
		UNIQUE (inviter_id, raffle_id)
	);

	CREATE TABLE IF NOT EXISTS prize_numbers (
		id BIGSERIAL PRIMARY KEY,
		raffle_id BIGINT NOT NULL REFERENCES raffles(id) ON DELETE CASCADE,
		number INT NOT NULL,
		prize_amount NUMERIC(10,2) NOT NULL,
		release_percentage_min NUMERIC(5,2) NOT NULL,
		release_percentage_max NUMERIC(5,2) NOT NULL,
		is_released BOOLEAN NOT NULL DEFAULT FALSE,
		is_won BOOLEAN NOT NULL DEFAULT FALSE,
		winner_user_id BIGINT REFERENCES users(id),
		won_at TIMESTAMPTZ,
		UNIQUE (raffle_id, number)
	);
	`

	_, err := pool.Exec(ctx, schema)
	return err
}
