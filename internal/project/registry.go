package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

const (
	registryDir  = "_registry"
	registryFile = "registry.json"
	registryLock = "registry.lock"
)

// RegistryEntry is one project record in the shared registry index.
type RegistryEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Dir        string    `json:"dir"`
	SourceFile string    `json:"source_file"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type registryDocument struct {
	Projects []RegistryEntry `json:"projects"`
}

// List returns all registered projects, newest first.
func (m *Manager) List() ([]RegistryEntry, error) {
	doc, err := m.readRegistry()
	if err != nil {
		return nil, err
	}
	entries := doc.Projects
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

// Find returns the registry entry whose id matches, or an error.
func (m *Manager) Find(id string) (RegistryEntry, error) {
	doc, err := m.readRegistry()
	if err != nil {
		return RegistryEntry{}, err
	}
	for _, entry := range doc.Projects {
		if entry.ID == id {
			return entry, nil
		}
	}
	return RegistryEntry{}, fmt.Errorf("project registry: no project with id %s", id)
}

// ProjectDir resolves a registry entry to its absolute directory.
func (m *Manager) ProjectDir(entry RegistryEntry) string {
	return filepath.Join(m.root, entry.Dir)
}

func (m *Manager) registerProject(project *Project) error {
	return m.mutateRegistry(func(doc *registryDocument) {
		doc.Projects = append(doc.Projects, RegistryEntry{
			ID:         project.ID,
			Title:      project.Title,
			Dir:        filepath.Base(project.Dir),
			SourceFile: project.SourceFile,
			Status:     project.Status,
			CreatedAt:  project.CreatedAt,
			UpdatedAt:  project.UpdatedAt,
		})
	})
}

func (m *Manager) updateRegistry(project *Project) error {
	return m.mutateRegistry(func(doc *registryDocument) {
		for i := range doc.Projects {
			if doc.Projects[i].ID == project.ID {
				doc.Projects[i].Status = project.Status
				doc.Projects[i].UpdatedAt = project.UpdatedAt
				return
			}
		}
	})
}

// mutateRegistry applies fn to the registry document under an exclusive file
// lock so concurrent processes do not lose updates.
func (m *Manager) mutateRegistry(fn func(*registryDocument)) error {
	dir := filepath.Join(m.root, registryDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("project registry: %w", err)
	}

	lock := flock.New(filepath.Join(dir, registryLock))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("project registry: acquire lock: %w", err)
	}
	defer lock.Unlock()

	doc, err := m.readRegistry()
	if err != nil {
		return err
	}
	fn(&doc)

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("project registry: encode: %w", err)
	}
	path := filepath.Join(dir, registryFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return fmt.Errorf("project registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("project registry: %w", err)
	}
	return nil
}

func (m *Manager) readRegistry() (registryDocument, error) {
	var doc registryDocument
	data, err := os.ReadFile(filepath.Join(m.root, registryDir, registryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("project registry: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("project registry: decode: %w", err)
	}
	return doc, nil
}
