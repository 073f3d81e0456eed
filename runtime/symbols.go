package runtime

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/symbol"
)

// ErrSymbolNotFound indicates the symbol map has no row for an address.
var ErrSymbolNotFound = errors.New("symbol not found")

// SymbolRecord is one persisted function pointer.
type SymbolRecord struct {
	Address memory.Address
	Symbol  string
	Origin  string
	Runtime string
}

// SymbolStore persists the address → symbol map of a runtime in SQLite so
// pointers seen in dumps and traces can be named after the process exits.
type SymbolStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSymbolStore opens (creating if needed) the symbol database at path.
func OpenSymbolStore(path string) (*SymbolStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS symbols (
		address INTEGER PRIMARY KEY,
		symbol  TEXT NOT NULL,
		origin  TEXT NOT NULL,
		runtime TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &SymbolStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SymbolStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SymbolStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save records entries under runtimeID, replacing any earlier rows for the
// same addresses.
func (s *SymbolStore) Save(runtimeID string, entries []*symbol.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO symbols (address, symbol, origin, runtime) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(int64(e.Address), e.Symbol(), e.Origin.String(), runtimeID); err != nil {
			tx.Rollback()
			return fmt.Errorf("saving symbol %s: %w", e.Symbol(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing symbols: %w", err)
	}
	return nil
}

// Lookup returns the record for addr.
func (s *SymbolStore) Lookup(addr memory.Address) (SymbolRecord, error) {
	rec := SymbolRecord{Address: addr}
	err := s.db.QueryRow("SELECT symbol, origin, runtime FROM symbols WHERE address = ?", int64(addr)).
		Scan(&rec.Symbol, &rec.Origin, &rec.Runtime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SymbolRecord{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, addr)
		}
		return SymbolRecord{}, fmt.Errorf("querying symbol: %w", err)
	}
	return rec, nil
}

// All returns every record ordered by address.
func (s *SymbolStore) All() ([]SymbolRecord, error) {
	rows, err := s.db.Query("SELECT address, symbol, origin, runtime FROM symbols ORDER BY address")
	if err != nil {
		return nil, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolRecord
	for rows.Next() {
		var (
			addr int64
			rec  SymbolRecord
		)
		if err := rows.Scan(&addr, &rec.Symbol, &rec.Origin, &rec.Runtime); err != nil {
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		rec.Address = memory.Address(addr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the symbol map.
func (s *SymbolStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting symbols: %w", err)
	}
	return n, nil
}
