package store

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"signupguard/internal/types"
)

// GenesisHash is the prev_hash of the first line in a new compliance
// log file.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// chainedEntry is one JSONL line: the compliance entry plus the hash of
// the previous line, forming a tamper-evident chain.
type chainedEntry struct {
	Entry    types.ComplianceLogEntry `json:"entry"`
	PrevHash string                   `json:"prev_hash"`
}

// JSONLSink is an append-only, hash-chained compliance log file. It
// implements audit.Sink.
type JSONLSink struct {
	path     string
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// OpenJSONL opens (or creates) the log file, recovering the chain tail
// from the last existing line.
func OpenJSONL(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		last, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			prevHash = hashLine(last)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open compliance log: %w", err)
	}
	return &JSONLSink{path: path, file: file, prevHash: prevHash}, nil
}

// AppendComplianceLog implements audit.Sink.
func (s *JSONLSink) AppendComplianceLog(entry types.ComplianceLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(chainedEntry{Entry: entry, PrevHash: s.prevHash})
	if err != nil {
		return fmt.Errorf("marshal compliance entry: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write compliance entry: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync compliance log: %w", err)
	}
	s.prevHash = hashLine(line)
	return nil
}

// Close flushes and closes the file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Verify re-reads the file and checks the hash chain, returning the
// number of valid entries. A broken chain reports the offending line.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open compliance log: %w", err)
	}
	defer f.Close()

	prevHash := GenesisHash
	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		var ce chainedEntry
		if err := json.Unmarshal(line, &ce); err != nil {
			return count, fmt.Errorf("line %d: parse: %w", count+1, err)
		}
		if ce.PrevHash != prevHash {
			return count, fmt.Errorf("line %d: chain broken: prev_hash %s, want %s", count+1, ce.PrevHash, prevHash)
		}
		prevHash = hashLine(append([]byte(nil), line...))
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("scan compliance log: %w", err)
	}
	return count, nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read existing log: %w", err)
	}
	defer f.Close()

	var last []byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan existing log: %w", err)
	}
	return last, nil
}

func hashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
