package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ebbcash/ebb/internal/service"
)

// ErrInsufficientData reports that a workspace has too little labeled
// history to train a model.
var ErrInsufficientData = errors.New("not enough labeled transactions to train")

// Registry trains and serves one model per workspace. Models persist as
// JSON files under the registry directory and are loaded lazily, so a
// fresh process predicts with whatever the last training run wrote.
type Registry struct {
	models map[int64]*bayesModel
	dir    string
	mu     sync.Mutex
}

// NewRegistry returns a registry rooted at dir. The directory is created
// on first training run, not here.
func NewRegistry(dir string) *Registry {
	return &Registry{
		models: make(map[int64]*bayesModel),
		dir:    dir,
	}
}

// Train fits a fresh model for the workspace from its labeled history and
// persists it, replacing any previous model. It returns the number of
// samples the model was trained on. Training needs at least
// minTrainingSamples usable samples; fewer is ErrInsufficientData.
func (r *Registry) Train(workspaceID int64, samples []service.LabeledDescription) (int, error) {
	usable := make([]service.LabeledDescription, 0, len(samples))
	for _, sample := range samples {
		if strings.TrimSpace(sample.Description) == "" || strings.TrimSpace(sample.Category) == "" {
			continue
		}
		usable = append(usable, sample)
	}
	if len(usable) < minTrainingSamples {
		return 0, fmt.Errorf("%w: have %d usable samples, need %d",
			ErrInsufficientData, len(usable), minTrainingSamples)
	}

	model := trainBayes(usable)
	if err := r.save(workspaceID, model); err != nil {
		return 0, fmt.Errorf("failed to save model for workspace %d: %w", workspaceID, err)
	}

	r.mu.Lock()
	r.models[workspaceID] = model
	r.mu.Unlock()

	return model.Samples, nil
}

// Predict returns the most likely category for a description. The second
// result is false when the workspace has no trained model or the
// description carries no usable words.
func (r *Registry) Predict(workspaceID int64, description string) (string, bool) {
	model, ok := r.load(workspaceID)
	if !ok {
		return "", false
	}
	return model.predict(description)
}

// Trained reports whether the workspace has a persisted model.
func (r *Registry) Trained(workspaceID int64) bool {
	_, ok := r.load(workspaceID)
	return ok
}

func (r *Registry) load(workspaceID int64) (*bayesModel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if model, ok := r.models[workspaceID]; ok {
		return model, true
	}

	data, err := os.ReadFile(r.modelPath(workspaceID))
	if err != nil {
		return nil, false
	}
	var model bayesModel
	if err := json.Unmarshal(data, &model); err != nil {
		// A corrupt file reads as untrained; the next Train overwrites it.
		return nil, false
	}

	r.models[workspaceID] = &model
	return &model, true
}

func (r *Registry) save(workspaceID int64, model *bayesModel) error {
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return err
	}

	path := r.modelPath(workspaceID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (r *Registry) modelPath(workspaceID int64) string {
	return filepath.Join(r.dir, fmt.Sprintf("workspace-%d.json", workspaceID))
}
