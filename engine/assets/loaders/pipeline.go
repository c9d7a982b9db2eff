package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// PipelineConfigLoader reads pipeline descriptions written in TOML.
type PipelineConfigLoader struct{}

/**
 * @brief Decodes the pipeline config at path. Unknown keys are rejected and
 * relative shader paths are resolved against the directory of the config file.
 */
func (pl *PipelineConfigLoader) Load(path string) (*metadata.PipelineConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: pipeline config: %w", core.ErrLoadFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	defer f.Close()

	config := &metadata.PipelineConfig{CullMode: metadata.FaceCullModeBack}
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(config); err != nil {
		err = fmt.Errorf("%w: decoding pipeline config '%s': %s", core.ErrInvalidConfig, path, err)
		core.LogError(err.Error())
		return nil, err
	}

	if config.VertexShader == "" || config.FragmentShader == "" {
		err := fmt.Errorf("%w: pipeline config '%s' needs a vertex and a fragment shader", core.ErrInvalidConfig, path)
		core.LogError(err.Error())
		return nil, err
	}
	if config.Name == "" {
		config.Name = filepath.Base(path)
	}

	dir := filepath.Dir(path)
	config.VertexShader = resolve(dir, config.VertexShader)
	config.FragmentShader = resolve(dir, config.FragmentShader)
	return config, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
