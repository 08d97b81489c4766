package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250601-000000",
		Description: "Initial schema",
		Up: []string{
			// Users - one ledger row per account, subscription and usage inlined.
			// user_id comes from the identity provider (Google OAuth subject).
			`CREATE TABLE IF NOT EXISTS users (
				user_id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				name TEXT NOT NULL,
				sub_status TEXT NOT NULL DEFAULT 'free',
				sub_plan TEXT NOT NULL DEFAULT 'free',
				lemonsqueezy_id TEXT,
				subscription_id TEXT,
				customer_id TEXT,
				variant_id TEXT,
				current_period_end TEXT,
				expires_at TEXT,
				cancelled_at TEXT,
				sub_created_at TEXT,
				sub_updated_at TEXT,
				sub_event_ts TEXT,
				usage_count INTEGER NOT NULL DEFAULT 0,
				usage_reset_date TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
			`CREATE INDEX IF NOT EXISTS idx_users_subscription_id ON users(subscription_id)`,

			// Subscription events - append-only audit of processed webhooks
			`CREATE TABLE IF NOT EXISTS subscription_events (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				event TEXT NOT NULL,
				payload_json TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_subscription_events_user_id ON subscription_events(user_id)`,

			// Payments - append-only record of payment outcomes
			`CREATE TABLE IF NOT EXISTS payments (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL,
				amount INTEGER,
				currency TEXT,
				payload_json TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id)`,
		},
	})
}
