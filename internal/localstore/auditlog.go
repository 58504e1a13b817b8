package localstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/storage"
)

// DefaultAuditKey is the storage key of the audit log.
const DefaultAuditKey = "audit.log"

// AuditLog stores audit entries as newline-delimited JSON.
type AuditLog struct {
	storage storage.Storage
	key     string
}

// NewAuditLog creates an audit log under key.
func NewAuditLog(st storage.Storage, key string) *AuditLog {
	if key == "" {
		key = DefaultAuditKey
	}
	return &AuditLog{storage: st, key: key}
}

// Append writes one entry as a single line.
func (l *AuditLog) Append(_ context.Context, entry audit.Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	line = append(line, '\n')
	if err := l.storage.Append(l.key, line); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Unparseable lines are
// skipped.
func (l *AuditLog) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]audit.Entry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// All returns every parseable entry in file order.
func (l *AuditLog) All(_ context.Context) ([]audit.Entry, error) {
	raw, err := l.storage.Read(l.key)
	if errors.Is(err, fs.ErrNotExist) {
		return []audit.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return ParseAuditLines(raw), nil
}

// ParseAuditLines decodes newline-delimited entries, skipping blank and
// malformed lines.
func ParseAuditLines(raw []byte) []audit.Entry {
	entries := []audit.Entry{}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// EncodeAuditLines renders entries in the on-disk line format.
func EncodeAuditLines(entries []audit.Entry) ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("encoding audit entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
