package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/YspCoder/menuctl/pkg/logger"
	"github.com/YspCoder/menuctl/pkg/richmenu"
)

const ext = ".json"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrNotFound is returned by Load and Delete for an unknown template.
var ErrNotFound = errors.New("template not found")

// Store keeps rich menu definitions as one JSON file per template.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

func (s *Store) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid template name %q: use letters, digits, '-' and '_'", name)
	}
	return filepath.Join(s.dir, name+ext), nil
}

// List returns template names in sorted order. A missing directory is empty.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if ValidName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Load(name string) (*richmenu.RichMenu, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	var menu richmenu.RichMenu
	if err := json.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	menu.RichMenuID = ""
	return &menu, nil
}

// Save writes menu under name, replacing any existing template. The menu ID
// is never stored.
func (s *Store) Save(name string, menu *richmenu.RichMenu) error {
	if menu == nil {
		return fmt.Errorf("menu is nil")
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}

	def := *menu
	def.RichMenuID = ""
	data, err := json.MarshalIndent(&def, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp template failed: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace template failed: %w", err)
	}

	logger.InfoCF("templates", "Template saved", map[string]interface{}{
		logger.FieldTemplate: name,
		logger.FieldBytes:    len(data),
	})
	return nil
}

func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}
