package exchange

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"soon/internal/task"
)

// File is the layout of an exported task list.
type File struct {
	Tasks []task.Task `yaml:"tasks"`
}

func WriteYAML(w io.Writer, tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Tasks: tasks}); err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes and validates a task list. Tasks without an id get a new
// one so that imported files can be written by hand.
func ReadYAML(r io.Reader) ([]task.Task, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	seen := make(map[string]bool, len(f.Tasks))
	for i := range f.Tasks {
		t := &f.Tasks[i]
		if t.ID == "" {
			t.ID = uuid.Must(uuid.NewV7()).String()
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("task %d: duplicate id %s: %w", i+1, t.ID, task.ErrInvalid)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}
	return f.Tasks, nil
}
