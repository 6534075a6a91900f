// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// SetupDB creates an in-memory SQLite database with migrations applied. It is closed when the test ends.
func SetupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// MockMailer is a test double for [services.Mailer] that records sent messages.
type MockMailer struct {
	mu   sync.Mutex
	sent []*services.Message

	// Err is returned from Send when set.
	Err error
	// FailFor makes Send fail only for these recipients.
	FailFor map[string]bool
}

func (m *MockMailer) Name() string { return "mock" }

func (m *MockMailer) Send(ctx context.Context, msg *services.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if m.FailFor[msg.To] {
		return errors.Join(shared.ErrMailFailed, errors.New("mock failure for "+msg.To))
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (m *MockMailer) Sent() []*services.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*services.Message(nil), m.sent...)
}

// Last returns the most recent message, or nil.
func (m *MockMailer) Last() *services.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

// MockVerifier is a test double for [services.Verifier].
type MockVerifier struct {
	Err      error
	Disabled bool
	Tokens   []string
}

func (m *MockVerifier) Enabled() bool { return !m.Disabled }

func (m *MockVerifier) Verify(_ context.Context, token, _ string) error {
	m.Tokens = append(m.Tokens, token)
	return m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
