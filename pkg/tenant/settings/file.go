package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/saturn/pkg/tenant"
)

// FileExtension is the suffix of settings files.
const FileExtension = ".yaml"

// FileStore keeps one YAML file per tenant in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	// mu serializes writers in this process.
	mu sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory %q: %w", dir, err)
	}
	logger = logger.With("component", "tenant.settings", "store", "local")
	logger.Info("tenant settings store ready", "dir", dir)
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the settings directory.
func (f *FileStore) Dir() string { return f.dir }

// Path returns the settings file for tenantID.
func (f *FileStore) Path(tenantID string) string {
	return filepath.Join(f.dir, tenantID+FileExtension)
}

// Get implements Store.
func (f *FileStore) Get(ctx context.Context, tenantID string) (*Settings, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path(tenantID))
	if errors.Is(err, os.ErrNotExist) {
		f.logger.Debug("no tenant settings found", "tenant_id", tenantID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings for tenant %s: %w", tenantID, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings for tenant %s: %w", tenantID, err)
	}
	s.TenantID = tenantID
	return &s, nil
}

// Put implements Store. The file is replaced atomically.
func (f *FileStore) Put(ctx context.Context, s *Settings) error {
	if s == nil || s.TenantID == "" {
		return ErrMissingTenantID
	}
	if err := tenant.ValidateID(s.TenantID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.Get(ctx, s.TenantID)
	if err != nil {
		return err
	}
	stamp(s, existing, f.now())

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings for tenant %s: %w", s.TenantID, err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+s.TenantID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write settings for tenant %s: %w", s.TenantID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings for tenant %s: %w", s.TenantID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings for tenant %s: %w", s.TenantID, err)
	}
	if err := os.Rename(tmp.Name(), f.Path(s.TenantID)); err != nil {
		return fmt.Errorf("write settings for tenant %s: %w", s.TenantID, err)
	}

	f.logger.Info("tenant settings saved", "tenant_id", s.TenantID)
	return nil
}

// Delete implements Store.
func (f *FileStore) Delete(ctx context.Context, tenantID string) (bool, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.Path(tenantID))
	if errors.Is(err, os.ErrNotExist) {
		f.logger.Warn("tenant settings not found", "tenant_id", tenantID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete settings for tenant %s: %w", tenantID, err)
	}

	f.logger.Info("tenant settings deleted", "tenant_id", tenantID)
	return true, nil
}

// List implements Store.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list settings directory %q: %w", f.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if id, ok := TenantIDFromPath(e.Name()); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// TenantIDFromPath returns the tenant id encoded in a settings file name,
// or false if the name is not a settings file.
func TenantIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, FileExtension) {
		return "", false
	}
	id := strings.TrimSuffix(base, FileExtension)
	if tenant.ValidateID(id) != nil {
		return "", false
	}
	return id, true
}
