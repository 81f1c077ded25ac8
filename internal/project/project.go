// Package project provides selection project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// File represents a selection project file (.selproj).
type File struct {
	Version  int       `json:"version"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Image path (relative to project file)
	ImagePath string `json:"image,omitempty"`

	// Selection vertices in placement order
	Points []geometry.Point `json:"points,omitempty"`

	// Whether the selection ring is closed
	Finished bool `json:"finished"`
}

// New creates a new project file.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		ID:       uuid.NewString(),
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// Load loads a project from a .selproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}

// SetImage sets the image path (relative to the project file).
func (p *File) SetImage(projectPath, imagePath string) {
	rel, err := filepath.Rel(filepath.Dir(projectPath), imagePath)
	if err != nil {
		p.ImagePath = imagePath
	} else {
		p.ImagePath = rel
	}
	p.Modified = time.Now()
}

// GetImagePath returns the absolute path to the image.
func (p *File) GetImagePath(projectPath string) string {
	if p.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(p.ImagePath) {
		return p.ImagePath
	}
	return filepath.Join(filepath.Dir(projectPath), p.ImagePath)
}

// Capture records the model's current selection into the project.
func (p *File) Capture(m *selection.Model) {
	p.Points = nil
	p.Finished = false
	p.Modified = time.Now()

	state := m.State()
	switch state {
	case selection.Selected:
		p.Points = geometry.Vertices(m.Path())
		p.Finished = true
	case selection.Selecting, selection.Processing:
		path := m.Path()
		if state == selection.Processing && closedRing(path) {
			// Processing can hold a finished ring while an export runs
			p.Points = geometry.Vertices(path)
			p.Finished = true
			return
		}
		start, _ := m.Start()
		p.Points = append(p.Points, start)
		for _, seg := range path {
			p.Points = append(p.Points, seg.End)
		}
	}
}

// closedRing reports whether the path's last segment returns to the first
// vertex.
func closedRing(path []geometry.PolyLine) bool {
	return len(path) >= 3 && path[len(path)-1].End == path[0].Start
}

// Apply replays the project's selection into the model. The model must
// already hold the project's image.
func (p *File) Apply(m *selection.Model) error {
	m.Reset()
	for i, pt := range p.Points {
		if err := m.AddPoint(pt); err != nil {
			return fmt.Errorf("failed to replay point %d: %w", i, err)
		}
	}
	if p.Finished {
		if err := m.FinishSelection(); err != nil {
			return fmt.Errorf("failed to close replayed selection: %w", err)
		}
	}
	return nil
}
