package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-segment-engine/internal/config"
	"crm-segment-engine/internal/segment"
)

type Store struct {
	pool *pgxpool.Pool
}

// Shop is one campaign workspace owned by a user email.
type Shop struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Order is a purchase attached to a shop.
type Order struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Shop   string    `json:"shop"`
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) CreateShop(ctx context.Context, sh *Shop) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sh.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shops (id, email, name, description)
		VALUES ($1, $2, $3, $4)
	`, sh.ID, sh.Email, sh.Name, sh.Description)
	if err != nil {
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}

func (s *Store) ListShops(ctx context.Context, email string) ([]Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, email, name, description
		FROM shops
		WHERE email = $1
		ORDER BY name
	`, email)
	if err != nil {
		return nil, fmt.Errorf("query shops: %w", err)
	}
	defer rows.Close()

	var out []Shop
	for rows.Next() {
		var sh Shop
		if err := rows.Scan(&sh.ID, &sh.Email, &sh.Name, &sh.Description); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) DeleteShop(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete shop: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c segment.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, shop_name, name, email, spends, visits, last_visit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), c.OwnerCampaign, c.Name, c.Email, c.Spends, c.Visits, c.LastVisit)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// FetchCustomers loads one shop's customer collection, the engine's base
// data.
func (s *Store) FetchCustomers(ctx context.Context, shop string) ([]segment.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT name, email, spends, visits, last_visit, shop_name
		FROM customers
		WHERE shop_name = $1
		ORDER BY name
	`, shop)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []segment.Customer
	for rows.Next() {
		var c segment.Customer
		if err := rows.Scan(&c.Name, &c.Email, &c.Spends, &c.Visits, &c.LastVisit, &c.OwnerCampaign); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateOrder(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, shop_name, name, email, amount, order_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID, o.Shop, o.Name, o.Email, o.Amount, o.Date)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, shop string) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, amount, order_date, shop_name
		FROM orders
		WHERE shop_name = $1
		ORDER BY order_date DESC
	`, shop)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Name, &o.Email, &o.Amount, &o.Date, &o.Shop); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// AppendCampaignLog writes send results; entries are append-only.
func (s *Store) AppendCampaignLog(ctx context.Context, shop string, records []segment.MessageRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, r := range records {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO communication_log (id, shop_name, cust_name, cust_email, status, message_subject, message_body, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.NewString(), shop, r.CustName, r.CustEmail, r.Status, r.MessageSubject, r.MessageBody, r.Timestamp)
		if err != nil {
			return fmt.Errorf("insert log entry: %w", err)
		}
	}
	return nil
}

func (s *Store) FetchCampaignLog(ctx context.Context, shop string) ([]segment.MessageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT cust_name, cust_email, status, message_subject, message_body, sent_at
		FROM communication_log
		WHERE shop_name = $1
		ORDER BY sent_at DESC
	`, shop)
	if err != nil {
		return nil, fmt.Errorf("query campaign log: %w", err)
	}
	defer rows.Close()

	var out []segment.MessageRecord
	for rows.Next() {
		var r segment.MessageRecord
		if err := rows.Scan(&r.CustName, &r.CustEmail, &r.Status, &r.MessageSubject, &r.MessageBody, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListenChannel() string {
	return "crm_data_change"
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
