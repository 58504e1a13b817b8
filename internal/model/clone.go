package model

import (
	"encoding/json"
	"fmt"
)

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() (*Dataset, error) {
	var out Dataset
	if err := deepCopy(d, &out); err != nil {
		return nil, fmt.Errorf("cloning dataset: %w", err)
	}
	return &out, nil
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() (*Project, error) {
	var out Project
	if err := deepCopy(p, &out); err != nil {
		return nil, fmt.Errorf("cloning project %d: %w", p.ID, err)
	}
	return &out, nil
}

func deepCopy(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
