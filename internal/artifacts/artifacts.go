// Package artifacts persists job outputs under a base directory:
//
//	<root>/cleaned/<job>.csv
//	<root>/reports/<job>.json
//	<root>/plans/<job>.json
//
// Writes from concurrent requests and processes are serialized by a lock
// file in the root, and every file is replaced atomically.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

// DefaultRoot is the base directory used when none is configured.
const DefaultRoot = "outputs"

const (
	cleanedDir = "cleaned"
	reportsDir = "reports"
	plansDir   = "plans"
	lockName   = ".lock"

	lockRetry = 50 * time.Millisecond
)

// ErrNotFound is returned for unknown or malformed job ids.
var ErrNotFound = errors.New("job_id not found")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// NewJobID returns a sortable id such as 20240131_154502_1a2b3c4d.
func NewJobID() string {
	return newJobID(time.Now())
}

func newJobID(now time.Time) string {
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.UTC().Format("20060102_150405") + "_" + rand[:8]
}

// Job is one set of outputs. Nil fields are not written.
type Job struct {
	ID      string
	Cleaned *dataset.Dataset
	Report  any
	Plan    *plan.Plan
}

// Paths lists the files written for a job.
type Paths struct {
	CleanedCSV string `json:"cleaned_csv,omitempty"`
	ReportJSON string `json:"report_json,omitempty"`
	PlanJSON   string `json:"plan_json,omitempty"`
}

type Store struct {
	root string
	log  *zap.Logger

	// mu serializes goroutines; lock serializes processes. A flock handle
	// does not exclude other goroutines holding the same handle.
	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore creates the directory layout under root.
func NewStore(root string, log *zap.Logger) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	if log == nil {
		log = zap.NewNop()
	}
	for _, d := range []string{cleanedDir, reportsDir, plansDir} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return &Store{root: root, lock: flock.New(filepath.Join(root, lockName)), log: log}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) path(dir, id, ext string) string {
	return filepath.Join(s.root, dir, id+ext)
}

// Save writes the job's artifacts concurrently while holding the store lock.
func (s *Store) Save(ctx context.Context, job Job) (Paths, error) {
	if !idPattern.MatchString(job.ID) {
		return Paths{}, fmt.Errorf("invalid job id %q", job.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return Paths{}, fmt.Errorf("acquire artifacts lock: %w", err)
	}
	if !locked {
		return Paths{}, errors.New("unable to acquire artifacts lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	var out Paths
	g, gctx := errgroup.WithContext(ctx)
	if job.Cleaned != nil {
		out.CleanedCSV = s.path(cleanedDir, job.ID, ".csv")
		g.Go(func() error {
			data, err := job.Cleaned.Bytes()
			if err != nil {
				return err
			}
			return writeAtomic(gctx, out.CleanedCSV, data)
		})
	}
	if job.Report != nil {
		out.ReportJSON = s.path(reportsDir, job.ID, ".json")
		g.Go(func() error {
			data, err := encodeJSON(job.Report)
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			return writeAtomic(gctx, out.ReportJSON, data)
		})
	}
	if job.Plan != nil {
		out.PlanJSON = s.path(plansDir, job.ID, ".json")
		g.Go(func() error {
			data, err := encodeJSON(job.Plan)
			if err != nil {
				return fmt.Errorf("encode plan: %w", err)
			}
			return writeAtomic(gctx, out.PlanJSON, data)
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("save artifacts", zap.String("job", job.ID), zap.Error(err))
		return Paths{}, err
	}

	s.log.Debug("artifacts saved",
		zap.String("job", job.ID),
		zap.String("cleaned_csv", out.CleanedCSV),
		zap.String("report_json", out.ReportJSON),
		zap.String("plan_json", out.PlanJSON),
	)
	return out, nil
}

// ReadReport returns the saved report document of id.
func (s *Store) ReadReport(id string) (json.RawMessage, error) {
	if !idPattern.MatchString(id) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.path(reportsDir, id, ".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

// CleanedPath returns the path of the cleaned CSV of id.
func (s *Store) CleanedPath(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", ErrNotFound
	}
	p := s.path(cleanedDir, id, ".csv")
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat cleaned csv: %w", err)
	}
	return p, nil
}

func encodeJSON(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeAtomic writes data to a temp file next to path and renames it over.
func writeAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
