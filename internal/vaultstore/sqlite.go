package vaultstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/cryptox"
	"github.com/noodlevault/noodlevault/internal/dbx"
	"github.com/noodlevault/noodlevault/internal/vaultstore/migrations"

	_ "modernc.org/sqlite"
)

const (
	metaHeader      = "header"
	metaLastContact = "last_contact_time"
	metaUsername    = "username"
)

// SQLiteStore implements Store over one sqlite file per user under dir.
//
// The store is not safe for concurrent use; callers serialize access through
// the vault access coordinator.
type SQLiteStore struct {
	dir string

	db       *sql.DB
	username string
	password []byte
	master   []byte
	header   []byte
}

// NewSQLiteStore returns a closed store rooted at dir.
func NewSQLiteStore(dir string) *SQLiteStore {
	return &SQLiteStore{dir: dir}
}

// ServerPasswordFromPassword derives the remote authenticator without an
// open vault, used when downloading a vault onto a fresh machine.
func ServerPasswordFromPassword(password string, salt []byte) []byte {
	return cryptox.ServerPassword([]byte(password), salt)
}

// RecoveryResponses derives the two answer verifiers submitted to the remote
// service during recovery. No vault is required.
func RecoveryResponses(answer1, answer2 string, salts RecoverySalts) (r1, r2 []byte) {
	r1 = cryptox.DeriveKey([]byte(answer1), salts.Salt11)
	r2 = cryptox.DeriveKey([]byte(answer2), salts.Salt21)
	return r1, r2
}

func (s *SQLiteStore) vaultPath(username string) string {
	return filepath.Join(s.dir, username+".vault")
}

func (s *SQLiteStore) Exists(username string) bool {
	_, err := os.Stat(s.vaultPath(username))
	return err == nil
}

// Remove deletes the user's vault file. Refused while a vault is open.
func (s *SQLiteStore) Remove(username string) error {
	if s.isOpen() {
		return common.ErrVaultOpen
	}
	if !s.Exists(username) {
		return common.ErrVaultMissing
	}
	return os.Remove(s.vaultPath(username))
}

func (s *SQLiteStore) isOpen() bool { return s.db != nil }

func (s *SQLiteStore) requireOpen() error {
	if !s.isOpen() {
		return common.ErrVaultClosed
	}
	return nil
}

func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening vault database: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating vault database: %w", err)
	}
	return db, nil
}

// Create makes a fresh vault: random master key, header wrapping it under a
// key derived from the password, empty record set. The vault is left open.
func (s *SQLiteStore) Create(ctx context.Context, username, password string) error {
	if s.isOpen() {
		return common.ErrVaultOpen
	}
	if s.Exists(username) {
		return common.ErrVaultExists
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating vault directory: %w", err)
	}

	master := common.RandBytes(cryptox.KeySize)
	header, err := wrapMaster(master, []byte(password))
	if err != nil {
		return err
	}
	return s.initialize(ctx, username, password, header, master, nil, 0)
}

// CreateFromServerData rebuilds a vault from a downloaded header and records.
func (s *SQLiteStore) CreateFromServerData(ctx context.Context, username, password string, header []byte, records []Record, lastContact int64) error {
	if s.isOpen() {
		return common.ErrVaultOpen
	}
	master, err := unwrapMaster(header, []byte(password))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating vault directory: %w", err)
	}
	// A stale local copy is replaced wholesale by the server's version.
	if s.Exists(username) {
		if err := os.Remove(s.vaultPath(username)); err != nil {
			return fmt.Errorf("removing stale vault: %w", err)
		}
	}
	return s.initialize(ctx, username, password, header, master, records, lastContact)
}

func (s *SQLiteStore) initialize(ctx context.Context, username, password string, header, master []byte, records []Record, lastContact int64) error {
	db, err := openDatabase(ctx, s.vaultPath(username))
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := setMeta(ctx, tx, metaHeader, header); err != nil {
			return err
		}
		if err := setMeta(ctx, tx, metaUsername, []byte(username)); err != nil {
			return err
		}
		if err := setMeta(ctx, tx, metaLastContact, []byte(strconv.FormatInt(lastContact, 10))); err != nil {
			return err
		}
		for _, r := range records {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO entries (key, kind, value, modified_at) VALUES (?, ?, ?, ?)`,
				r.Key, r.Kind, r.Payload, r.ModifiedAt)
			if err != nil {
				return fmt.Errorf("loading record %q: %w", r.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		_ = os.Remove(s.vaultPath(username))
		return err
	}

	s.db = db
	s.username = username
	s.password = []byte(password)
	s.master = master
	s.header = header
	return nil
}

// Open unlocks an existing vault. A wrong password surfaces as
// common.ErrWrongPassword from the header unwrap.
func (s *SQLiteStore) Open(ctx context.Context, username, password string) error {
	if s.isOpen() {
		return common.ErrVaultOpen
	}
	if !s.Exists(username) {
		return common.ErrVaultMissing
	}

	db, err := openDatabase(ctx, s.vaultPath(username))
	if err != nil {
		return err
	}

	header, err := getMeta(ctx, db, metaHeader)
	if err != nil {
		_ = db.Close()
		return err
	}
	master, err := unwrapMaster(header, []byte(password))
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.username = username
	s.password = []byte(password)
	s.master = master
	s.header = header
	return nil
}

// Close locks the vault and wipes key material. Closing a closed store is an
// error so state bugs surface early.
func (s *SQLiteStore) Close() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	err := s.db.Close()
	common.WipeBytes(s.password)
	common.WipeBytes(s.master)
	s.db = nil
	s.username = ""
	s.password = nil
	s.master = nil
	s.header = nil
	return err
}

func (s *SQLiteStore) Add(ctx context.Context, kind Kind, key string, plaintext []byte, ts int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	payload, err := cryptox.Seal(s.master, plaintext)
	if err != nil {
		return err
	}
	return s.AddEncrypted(ctx, kind, key, payload, ts)
}

func (s *SQLiteStore) AddEncrypted(ctx context.Context, kind Kind, key string, payload []byte, ts int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE key = ?`, key).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking key %q: %w", key, err)
	}
	if exists > 0 {
		return common.ErrKeyExists
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (key, kind, value, modified_at) VALUES (?, ?, ?, ?)`,
		key, kind, payload, ts)
	if err != nil {
		return fmt.Errorf("inserting %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, kind Kind, key string, plaintext []byte, ts int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	payload, err := cryptox.Seal(s.master, plaintext)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET kind = ?, value = ?, modified_at = ? WHERE key = ?`,
		kind, payload, ts, key)
	if err != nil {
		return fmt.Errorf("updating %q: %w", key, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Kind, []byte, error) {
	kind, payload, _, err := s.GetEncrypted(ctx, key)
	if err != nil {
		return 0, nil, err
	}
	plaintext, err := s.DecryptValue(payload)
	if err != nil {
		return 0, nil, err
	}
	return kind, plaintext, nil
}

func (s *SQLiteStore) GetEncrypted(ctx context.Context, key string) (Kind, []byte, int64, error) {
	if err := s.requireOpen(); err != nil {
		return 0, nil, 0, err
	}
	var (
		kind    Kind
		payload []byte
		ts      int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, value, modified_at FROM entries WHERE key = ?`, key).
		Scan(&kind, &payload, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, 0, common.ErrNotFound
	}
	if err != nil {
		return 0, nil, 0, fmt.Errorf("reading %q: %w", key, err)
	}
	return kind, payload, ts, nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) DecryptValue(payload []byte) ([]byte, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	return cryptox.Open(s.master, payload)
}

func (s *SQLiteStore) LastContactTime(ctx context.Context) (int64, error) {
	if err := s.requireOpen(); err != nil {
		return 0, err
	}
	raw, err := getMeta(ctx, s.db, metaLastContact)
	if err != nil {
		return 0, err
	}
	t, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing last contact time: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) SetLastContactTime(ctx context.Context, t int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	return setMeta(ctx, s.db, metaLastContact, []byte(strconv.FormatInt(t, 10)))
}

func (s *SQLiteStore) Header(ctx context.Context) ([]byte, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	out := make([]byte, len(s.header))
	copy(out, s.header)
	return out, nil
}

func (s *SQLiteStore) DeriveServerPassword(salt []byte) ([]byte, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	return cryptox.ServerPassword(s.password, salt), nil
}

func (s *SQLiteStore) RegistrationData(answer1, answer2 string) (*RegistrationData, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}

	salts := RecoverySalts{
		Salt11: common.RandBytes(cryptox.SaltSize),
		Salt12: common.RandBytes(cryptox.SaltSize),
		Salt21: common.RandBytes(cryptox.SaltSize),
		Salt22: common.RandBytes(cryptox.SaltSize),
	}
	r1, r2 := RecoveryResponses(answer1, answer2, salts)

	k1 := cryptox.DeriveKey([]byte(answer1), salts.Salt12)
	k2 := cryptox.DeriveKey([]byte(answer2), salts.Salt22)
	recoveryKey, err := cryptox.Seal(cryptox.RecoveryWrapKey(k1, k2), s.master)
	if err != nil {
		return nil, err
	}

	passSalt2 := common.RandBytes(cryptox.SaltSize)
	return &RegistrationData{
		ServerPassword: cryptox.ServerPassword(s.password, passSalt2),
		PassSalt1:      headerSalt(s.header),
		PassSalt2:      passSalt2,
		// The server keeps hashes of the derived responses; the raw values
		// are presented again on recovery and hashed for comparison.
		Verifier1:   cryptox.Verifier(r1),
		Verifier2:   cryptox.Verifier(r2),
		Salts:       salts,
		RecoveryKey: recoveryKey,
	}, nil
}

// RewrapFromRecovery recovers the master key from the answers and the
// server-held recovery blob, then re-wraps the local vault under the new
// password. The vault must be closed (the user has lost the old password).
func (s *SQLiteStore) RewrapFromRecovery(ctx context.Context, username, answer1, answer2 string, recoveryBlob []byte, salts RecoverySalts, newPassword string) (*RewrapResult, error) {
	if s.isOpen() {
		return nil, common.ErrVaultOpen
	}
	if !s.Exists(username) {
		return nil, common.ErrVaultMissing
	}

	k1 := cryptox.DeriveKey([]byte(answer1), salts.Salt12)
	k2 := cryptox.DeriveKey([]byte(answer2), salts.Salt22)
	wrap := cryptox.RecoveryWrapKey(k1, k2)

	master, err := cryptox.Open(wrap, recoveryBlob)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(master)

	newHeader, err := wrapMaster(master, []byte(newPassword))
	if err != nil {
		return nil, err
	}
	newRecoveryKey, err := cryptox.Seal(wrap, master)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx, s.vaultPath(username))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := setMeta(ctx, db, metaHeader, newHeader); err != nil {
		return nil, err
	}

	passSalt2 := common.RandBytes(cryptox.SaltSize)
	return &RewrapResult{
		ServerPassword: cryptox.ServerPassword([]byte(newPassword), passSalt2),
		PassSalt1:      headerSalt(newHeader),
		PassSalt2:      passSalt2,
		Header:         newHeader,
		RecoveryKey:    newRecoveryKey,
	}, nil
}

// wrapMaster builds a vault header: kekSalt ‖ Seal(kek, master).
func wrapMaster(master, password []byte) ([]byte, error) {
	salt := common.RandBytes(cryptox.SaltSize)
	kek := cryptox.DeriveKey(password, salt)
	sealed, err := cryptox.Seal(kek, master)
	if err != nil {
		return nil, err
	}
	return append(salt, sealed...), nil
}

func unwrapMaster(header, password []byte) ([]byte, error) {
	if len(header) <= cryptox.SaltSize {
		return nil, common.ErrBadPayload
	}
	kek := cryptox.DeriveKey(password, header[:cryptox.SaltSize])
	return cryptox.Open(kek, header[cryptox.SaltSize:])
}

func headerSalt(header []byte) []byte {
	return header[:cryptox.SaltSize]
}

func getMeta(ctx context.Context, db dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata[%s]: %w", key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing metadata[%s]: %w", key, err)
	}
	return nil
}
