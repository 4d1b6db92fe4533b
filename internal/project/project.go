package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pulpit/internal/textutil"
)

const (
	// Numbered subdirectories keep the artifact order visible in listings.
	TranscriptSubdir = "01_transcript"
	AudioSubdir      = "02_audio"
	OutputSubdir     = "03_output"
	TempSubdir       = "temp"

	metadataFile = "project.json"
)

// Project describes one processed recording and its directory layout.
type Project struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourceFile string    `json:"source_file"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Dir is the absolute project directory. It is derived from the
	// registry root on load and not serialized, so projects survive the
	// root being moved.
	Dir string `json:"-"`
}

// TranscriptDir returns the directory holding transcript artifacts.
func (p *Project) TranscriptDir() string { return filepath.Join(p.Dir, TranscriptSubdir) }

// AudioDir returns the directory holding extracted and segmented audio.
func (p *Project) AudioDir() string { return filepath.Join(p.Dir, AudioSubdir) }

// OutputDir returns the directory holding corrected text and analysis output.
func (p *Project) OutputDir() string { return filepath.Join(p.Dir, OutputSubdir) }

// TempDir returns the scratch directory removed when the project completes.
func (p *Project) TempDir() string { return filepath.Join(p.Dir, TempSubdir) }

// Manager creates and tracks projects under a common root directory.
type Manager struct {
	root string
	now  func() time.Time
}

// NewManager returns a manager rooted at the given directory.
func NewManager(root string) *Manager {
	return &Manager{root: root, now: time.Now}
}

// Root returns the projects root directory.
func (m *Manager) Root() string { return m.root }

// Create allocates a new project directory and records it in the registry.
// The directory name combines a timestamp, a short unique id, and the
// sanitized title so listings sort chronologically and stay readable.
func (m *Manager) Create(title, sourceFile string) (*Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("project create: empty title")
	}

	now := m.now().UTC()
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	dirName := fmt.Sprintf("%s_%s_%s", now.Format("20060102_150405"), id, textutil.SanitizeSegment(title))
	dir := filepath.Join(m.root, dirName)

	for _, sub := range []string{TranscriptSubdir, AudioSubdir, OutputSubdir, TempSubdir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("project create: %w", err)
		}
	}

	project := &Project{
		ID:         id,
		Title:      strings.TrimSpace(title),
		SourceFile: sourceFile,
		Status:     "created",
		CreatedAt:  now,
		UpdatedAt:  now,
		Dir:        dir,
	}
	if err := project.save(); err != nil {
		return nil, err
	}
	if err := m.registerProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Load reads a project from its directory.
func Load(dir string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("project load: %w", err)
	}
	var project Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("project load: decode %s: %w", filepath.Base(dir), err)
	}
	project.Dir = dir
	return &project, nil
}

// UpdateStatus persists a status change on the project metadata and the
// registry entry.
func (m *Manager) UpdateStatus(project *Project, status string) error {
	project.Status = status
	project.UpdatedAt = m.now().UTC()
	if err := project.save(); err != nil {
		return err
	}
	return m.updateRegistry(project)
}

// CleanTemp removes the project scratch directory.
func (p *Project) CleanTemp() error {
	if err := os.RemoveAll(p.TempDir()); err != nil {
		return fmt.Errorf("project clean temp: %w", err)
	}
	return nil
}

func (p *Project) save() error {
	encoded, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("project save: encode: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.Dir, metadataFile), encoded, 0o644); err != nil {
		return fmt.Errorf("project save: %w", err)
	}
	return nil
}
