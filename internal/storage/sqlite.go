package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for the job catalog, the chat
// message log, accounts, and persisted user profiles.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "jobscout.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Job catalog ---

// SaveJob inserts one listing into the catalog.
func (s *Store) SaveJob(j Job) error {
	reqs, err := json.Marshal(j.Requirements)
	if err != nil {
		return fmt.Errorf("marshaling requirements: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO jobs (id, location, job_title, level, corporate, requirements)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.Location, j.JobTitle, j.Level, j.Corporate, string(reqs),
	)
	return err
}

// FilterJobs returns every listing matching the criteria. Corporate and
// JobTitle are mandatory; the other fields narrow the result only when set.
func (s *Store) FilterJobs(c Criteria) ([]Job, error) {
	if c.Corporate == "" || c.JobTitle == "" {
		return nil, ErrIncompleteCriteria
	}

	query := `SELECT id, location, job_title, level, corporate, requirements
		FROM jobs
		WHERE LOWER(corporate) = LOWER(?) AND INSTR(LOWER(job_title), LOWER(?)) > 0`
	args := []any{c.Corporate, c.JobTitle}

	if c.Level != "" {
		query += ` AND LOWER(level) = LOWER(?)`
		args = append(args, c.Level)
	}
	if c.Location != "" {
		query += ` AND INSTR(LOWER(location), LOWER(?)) > 0`
		args = append(args, c.Location)
	}
	query += ` ORDER BY rowid ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Job
	for rows.Next() {
		var j Job
		var reqs string
		if err := rows.Scan(&j.ID, &j.Location, &j.JobTitle, &j.Level, &j.Corporate, &reqs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(reqs), &j.Requirements); err != nil {
			return nil, fmt.Errorf("parsing requirements for job %s: %w", j.ID, err)
		}
		if !hasAllRequirements(j.Requirements, c.Requirements) {
			continue
		}
		results = append(results, j)
	}
	return results, rows.Err()
}

// hasAllRequirements reports whether every wanted string appears verbatim
// in the record's requirement list.
func hasAllRequirements(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CountJobs returns the number of listings in the catalog.
func (s *Store) CountJobs() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&n)
	return n, err
}

// --- Chat message log ---

// SaveMessage appends one entry to the chat log.
func (s *Store) SaveMessage(m Message) error {
	if m.Sender == "" && m.Receiver == "" {
		return fmt.Errorf("either sender or receiver must be provided")
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO chat_messages (sender, receiver, message, is_user_message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.Sender, m.Receiver, m.Text, m.IsUserMessage, createdAt.Format(time.RFC3339),
	)
	return err
}

// MessagesFor returns the identity's chat log in insertion order.
func (s *Store) MessagesFor(identity string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, sender, receiver, message, is_user_message, created_at
		FROM chat_messages
		WHERE sender = ? OR receiver = ?
		ORDER BY id ASC`, identity, identity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &m.IsUserMessage, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		m.CreatedAt = t
		results = append(results, m)
	}
	return results, rows.Err()
}

// DeleteMessagesFor removes every chat log entry involving the identity.
func (s *Store) DeleteMessagesFor(identity string) error {
	_, err := s.db.Exec(`DELETE FROM chat_messages WHERE sender = ? OR receiver = ?`, identity, identity)
	return err
}

// DeleteAllMessages empties the chat log.
func (s *Store) DeleteAllMessages() error {
	_, err := s.db.Exec(`DELETE FROM chat_messages`)
	return err
}

// --- Accounts ---

// CreateUser registers an account. The caller supplies an already-hashed
// password.
func (s *Store) CreateUser(u User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, createdAt.Format(time.RFC3339),
	)
	return err
}

// GetUser returns the account for username, or ErrNotFound.
func (s *Store) GetUser(username string) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRow(`
		SELECT username, email, password_hash, created_at
		FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

// --- User profiles ---

// SaveUserProfile upserts the persisted search profile for a user.
func (s *Store) SaveUserProfile(p UserProfile) error {
	_, err := s.db.Exec(`
		INSERT INTO user_profiles (username, location, job_title, level, corporate, requirements)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			location = excluded.location,
			job_title = excluded.job_title,
			level = excluded.level,
			corporate = excluded.corporate,
			requirements = excluded.requirements`,
		p.Username, p.Location, p.JobTitle, p.Level, p.Corporate, p.Requirements,
	)
	return err
}

// GetUserProfile returns the persisted profile for username, or ErrNotFound.
func (s *Store) GetUserProfile(username string) (UserProfile, error) {
	var p UserProfile
	err := s.db.QueryRow(`
		SELECT username, location, job_title, level, corporate, requirements
		FROM user_profiles WHERE username = ?`, username,
	).Scan(&p.Username, &p.Location, &p.JobTitle, &p.Level, &p.Corporate, &p.Requirements)
	if err == sql.ErrNoRows {
		return UserProfile{}, ErrNotFound
	}
	return p, err
}
