package store

import (
	"context"
	"database/sql"
	"encoding/json"
	errs "errors"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mkeppel/habitquest-tui/internal/engine"
	"github.com/mkeppel/habitquest-tui/internal/util"
)

var ErrNoChange = errs.New("no change")

// StateSlot is the fixed storage key holding the one serialized HabitState
// blob. There is exactly one row in habit_state.
const StateSlot = "habit_tracker_state"

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Open connects to DB per config.
func Open(ctx context.Context, cfg util.Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	// Postgres-only
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// StateRepo reads and writes the single HabitState blob. One producer (the
// UI after each transition), one consumer (startup load).
type StateRepo struct {
	db  *DB
	log *zap.Logger
}

func NewStateRepo(db *DB, log *zap.Logger) *StateRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateRepo{db: db, log: log}
}

// Load returns the persisted state, or the default roster when the slot is
// empty or holds something undecodable. Stored values are trusted as-is;
// there is no version field or migration of the payload.
func (r *StateRepo) Load(ctx context.Context) (engine.HabitState, error) {
	row := r.db.gorm.WithContext(ctx).Raw(
		`SELECT payload FROM habit_state WHERE slot = ?`, StateSlot).Row()
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			r.log.Info("no stored state, using defaults")
			return engine.DefaultState(), nil
		}
		return engine.HabitState{}, wrap(err, "load state")
	}
	return DecodeState(payload, r.log), nil
}

// Save overwrites the blob wholesale. Called after every transition; writes
// are strictly ordered behind their triggering transition.
func (r *StateRepo) Save(ctx context.Context, state engine.HabitState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return wrap(err, "encode state")
	}
	err = r.db.gorm.WithContext(ctx).Exec(
		`INSERT INTO habit_state(slot, payload, updated_at) VALUES (?, ?, now())
		ON CONFLICT (slot) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		StateSlot, payload).Error
	if err != nil {
		return wrap(err, "save state")
	}
	r.log.Debug("state saved", zap.Int("bytes", len(payload)))
	return nil
}

// DecodeState parses a stored payload, falling back to the default state on
// malformed input instead of surfacing an error.
func DecodeState(payload []byte, log *zap.Logger) engine.HabitState {
	if log == nil {
		log = zap.NewNop()
	}
	if len(payload) == 0 {
		return engine.DefaultState()
	}
	var st engine.HabitState
	if err := json.Unmarshal(payload, &st); err != nil {
		log.Warn("stored state undecodable, using defaults", zap.Error(err))
		return engine.DefaultState()
	}
	if st.History == nil {
		st.History = engine.History{}
	}
	return st
}

// Helper error wrap
func wrap(err error, msg string) error { if err == nil { return nil }; return errors.Wrap(err, msg) }
