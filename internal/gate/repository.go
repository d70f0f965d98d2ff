package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"
)

var (
	ErrDisabled      = errors.New("gate: oracle is not configured")
	ErrBadConnString = errors.New("gate: connection string must be host[:port]/service")
)

const (
	maxOpenConns = 5
	maxIdleConns = 1
	defaultPort  = 1521
)

// Pending gate passes of today for the PM division that have not been
// weighed yet. Planned time is the gate entry time plus 15 minutes.
const pendingQuery = `
    select t.vrdate + interval '15' minute as planned_timestamp,
           t.order_vrno,
           t.vrno,
           lhs_utility.get_name('acc_code', t.acc_code) as party_name,
           t.truckno,
           t.driver_name,
           t.driver_mobile,
           t.driver_driving_license
      from view_gatetran_engine t
     where t.entity_code = 'SR'
       and t.order_tcode = 'O'
       and (select distinct a.div_code from view_order_engine a where a.vrno = t.order_vrno) = 'PM'
       and t.wslip_no is null
       and t.vrdate >= trunc(sysdate)
  order by t.vrdate + interval '15' minute asc`

// Pass is one pending gate pass.
type Pass struct {
	PlannedTimestamp *time.Time `json:"planned_timestamp"`
	OrderNo          string     `json:"order_no"`
	GateEntryNo      string     `json:"gate_entry_no"`
	PartyName        string     `json:"party_name"`
	TruckNo          string     `json:"truck_no"`
	DriverName       string     `json:"driver_name"`
	DriverMobile     string     `json:"driver_mobile"`
	DrivingLicense   string     `json:"driving_license"`
}

// Querier is the part of *sql.DB the repository uses.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Repository struct {
	db  Querier
	log *zap.Logger
}

func NewRepository(db Querier, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: db, log: log.Named("gate")}
}

// Open connects to Oracle with the pure-Go driver.
func Open(user, password, connString string) (*sql.DB, error) {
	dsn, err := DSN(user, password, connString)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("open oracle: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// DSN turns an easy-connect string (host[:port]/service) into a go-ora
// URL.
func DSN(user, password, connString string) (string, error) {
	connString = strings.TrimPrefix(strings.TrimSpace(connString), "//")
	hostPort, service, ok := strings.Cut(connString, "/")
	if !ok || hostPort == "" || service == "" {
		return "", ErrBadConnString
	}

	host, port := hostPort, defaultPort
	if h, p, err := net.SplitHostPort(hostPort); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", ErrBadConnString
		}
		host, port = h, n
	}
	return go_ora.BuildUrl(host, port, service, user, password, nil), nil
}

func (r *Repository) Pending(ctx context.Context) ([]Pass, error) {
	if r == nil || r.db == nil {
		return nil, ErrDisabled
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, pendingQuery)
	if err != nil {
		return nil, fmt.Errorf("query pending gate passes: %w", err)
	}
	defer rows.Close()

	out := []Pass{}
	for rows.Next() {
		var (
			planned sql.NullTime
			cols    [7]sql.NullString
		)
		if err := rows.Scan(&planned, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6]); err != nil {
			return nil, fmt.Errorf("scan gate pass: %w", err)
		}
		p := Pass{
			OrderNo:        cols[0].String,
			GateEntryNo:    cols[1].String,
			PartyName:      cols[2].String,
			TruckNo:        cols[3].String,
			DriverName:     cols[4].String,
			DriverMobile:   cols[5].String,
			DrivingLicense: cols[6].String,
		}
		if planned.Valid {
			t := planned.Time
			p.PlannedTimestamp = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read gate passes: %w", err)
	}

	r.log.Debug("pending gate passes", zap.Int("rows", len(out)), zap.Duration("took", time.Since(start)))
	return out, nil
}
