package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
)

// schema is applied idempotently on connect; every statement uses IF NOT
// EXISTS so the store can be pointed at a pre-existing database.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id    TEXT PRIMARY KEY,
	token_id    TEXT NOT NULL,
	side        TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	size        DOUBLE PRECISION NOT NULL,
	filled_size DOUBLE PRECISION NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	created_ts  BIGINT NOT NULL,
	updated_ts  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_token_id ON orders(token_id);

CREATE TABLE IF NOT EXISTS fills (
	fill_id  TEXT PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders(order_id),
	token_id TEXT NOT NULL,
	side     TEXT NOT NULL,
	price    DOUBLE PRECISION NOT NULL,
	size     DOUBLE PRECISION NOT NULL,
	fee      DOUBLE PRECISION NOT NULL DEFAULT 0,
	ts       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_order_id ON fills(order_id);
CREATE INDEX IF NOT EXISTS idx_fills_ts ON fills(ts);

CREATE TABLE IF NOT EXISTS positions (
	token_id     TEXT PRIMARY KEY,
	qty          DOUBLE PRECISION NOT NULL,
	avg_cost     DOUBLE PRECISION NOT NULL,
	realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_ts   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id               BIGSERIAL PRIMARY KEY,
	intent_id        TEXT NOT NULL DEFAULT '',
	token_id         TEXT NOT NULL,
	side             TEXT NOT NULL,
	price            DOUBLE PRECISION NOT NULL,
	size             DOUBLE PRECISION NOT NULL,
	mode             TEXT NOT NULL,
	reason           TEXT NOT NULL DEFAULT '',
	accepted         BOOLEAN NOT NULL,
	rejection_reason TEXT NOT NULL DEFAULT '',
	ts               BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts);

CREATE TABLE IF NOT EXISTS pnl_snapshots (
	ts              BIGINT PRIMARY KEY,
	total_notional  DOUBLE PRECISION NOT NULL DEFAULT 0,
	num_positions   INTEGER NOT NULL DEFAULT 0,
	num_open_orders INTEGER NOT NULL DEFAULT 0,
	daily_pnl       DOUBLE PRECISION NOT NULL DEFAULT 0,
	realized_pnl    DOUBLE PRECISION NOT NULL,
	unrealized_pnl  DOUBLE PRECISION NOT NULL
);
`

// Postgres implements Store on PostgreSQL via database/sql and lib/pq.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection parameters.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgres opens a connection, applies the schema, and returns a ready Store.
func NewPostgres(ctx context.Context, cfg *Config) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Postgres{db: db, logger: cfg.Logger}, nil
}

// SaveOrder inserts or replaces an order row.
func (p *Postgres) SaveOrder(ctx context.Context, order *domain.OpenOrder, status domain.OrderStatus, reason string) error {
	query := `
		INSERT INTO orders (order_id, token_id, side, price, size, filled_size, status, reason, created_ts, updated_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (order_id) DO UPDATE SET
			price = EXCLUDED.price, size = EXCLUDED.size, filled_size = EXCLUDED.filled_size,
			status = EXCLUDED.status, reason = EXCLUDED.reason, updated_ts = EXCLUDED.created_ts
	`
	_, err := p.db.ExecContext(ctx, query,
		order.OrderID, order.TokenID, string(order.Side), order.Price, order.Size,
		order.FilledSize, string(status), reason, order.CreatedTSMs,
	)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}

	p.logger.Debug("order-saved", zap.String("order-id", order.OrderID), zap.String("status", string(status)))
	return nil
}

// UpdateOrderStatus transitions an order's lifecycle status and filled size.
func (p *Postgres) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, filledSize float64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, filled_size = $2, updated_ts = $3 WHERE order_id = $4`,
		string(status), filledSize, time.Now().UnixMilli(), orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// SaveFill inserts a fill row.
func (p *Postgres) SaveFill(ctx context.Context, fill *domain.Fill) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO fills (fill_id, order_id, token_id, side, price, size, fee, ts) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fill.FillID, fill.OrderID, fill.TokenID, string(fill.Side), fill.Price, fill.Size, fill.Fee, fill.TSMs,
	)
	if err != nil {
		return fmt.Errorf("save fill: %w", err)
	}

	p.logger.Debug("fill-saved", zap.String("fill-id", fill.FillID), zap.String("token-id", fill.TokenID))
	return nil
}

// SavePosition upserts a position row.
func (p *Postgres) SavePosition(ctx context.Context, position *domain.Position) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO positions (token_id, qty, avg_cost, realized_pnl, updated_ts)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token_id) DO UPDATE SET
		 	qty = EXCLUDED.qty, avg_cost = EXCLUDED.avg_cost, realized_pnl = EXCLUDED.realized_pnl, updated_ts = EXCLUDED.updated_ts`,
		position.TokenID, position.Qty, position.AvgCost, position.RealizedPnL, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// LoadPositions rehydrates every position row, keyed by token id.
func (p *Postgres) LoadPositions(ctx context.Context) (map[string]*domain.Position, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT token_id, qty, avg_cost, realized_pnl FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	positions := make(map[string]*domain.Position)
	for rows.Next() {
		var pos domain.Position
		if err := rows.Scan(&pos.TokenID, &pos.Qty, &pos.AvgCost, &pos.RealizedPnL); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions[pos.TokenID] = &pos
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}

	p.logger.Info("positions-loaded", zap.Int("count", len(positions)))
	return positions, nil
}

// SaveDecision inserts an audit row for an accepted or rejected intent.
func (p *Postgres) SaveDecision(ctx context.Context, decision *domain.Decision) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO decisions (intent_id, token_id, side, price, size, mode, reason, accepted, rejection_reason, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		decision.IntentID, decision.TokenID, string(decision.Side), decision.Price, decision.Size, string(decision.Mode),
		decision.Reason, decision.Accepted, decision.RejectionReason, decision.TSMs,
	)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the most recent decisions, newest first.
func (p *Postgres) RecentDecisions(ctx context.Context, limit int) ([]*domain.Decision, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, intent_id, token_id, side, price, size, mode, reason, accepted, rejection_reason, ts
		 FROM decisions ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*domain.Decision
	for rows.Next() {
		var d domain.Decision
		var side, mode string
		if err := rows.Scan(&d.ID, &d.IntentID, &d.TokenID, &side, &d.Price, &d.Size, &mode, &d.Reason, &d.Accepted, &d.RejectionReason, &d.TSMs); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Side = domain.Side(side)
		d.Mode = domain.IntentMode(mode)
		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return decisions, nil
}

// SaveSnapshot records a point-in-time portfolio risk snapshot for
// audit/recovery.
func (p *Postgres) SaveSnapshot(ctx context.Context, snapshot *domain.RiskSnapshot) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO pnl_snapshots (ts, total_notional, num_positions, num_open_orders, daily_pnl, realized_pnl, unrealized_pnl)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (ts) DO UPDATE SET
		 	total_notional = EXCLUDED.total_notional, num_positions = EXCLUDED.num_positions,
		 	num_open_orders = EXCLUDED.num_open_orders, daily_pnl = EXCLUDED.daily_pnl,
		 	realized_pnl = EXCLUDED.realized_pnl, unrealized_pnl = EXCLUDED.unrealized_pnl`,
		snapshot.TSMs, snapshot.TotalNotional, snapshot.NumPositions, snapshot.NumOpenOrders,
		snapshot.DailyPnL, snapshot.RealizedPnL, snapshot.UnrealizedPnL,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}
