// args.go - Lade-Argumente
// LoaderArgs sind die prozessweiten Einstellungen, die nicht in config.json
// stehen. Voreinstellungen kommen aus envconfig.
package model

import (
	"errors"
	"fmt"

	"github.com/EchoCog/aphroditecho/envconfig"
	"github.com/EchoCog/aphroditecho/ml"
)

type LoaderArgs struct {
	ModelID  string
	Revision string

	DType  ml.DType
	Device string

	ProfileStepNo        int
	BlockSize            int
	GPUMemoryUtilization float64
	MaxBatchedTokens     int
	MaxSequences         int
}

// DefaultLoaderArgs returns arguments populated from the environment.
func DefaultLoaderArgs(modelID string) (LoaderArgs, error) {
	dtype, err := ml.ParseDType(envconfig.DType())
	if err != nil {
		return LoaderArgs{}, fmt.Errorf("APHRODITE_DTYPE: %w", err)
	}

	return LoaderArgs{
		ModelID:              modelID,
		DType:                dtype,
		Device:               envconfig.Device(),
		ProfileStepNo:        int(envconfig.ProfileStep()),
		BlockSize:            int(envconfig.BlockSize()),
		GPUMemoryUtilization: envconfig.GPUMemoryUtilization(),
		MaxBatchedTokens:     int(envconfig.MaxBatchedTokens()),
		MaxSequences:         int(envconfig.MaxSequences()),
	}, nil
}

func (a LoaderArgs) Validate() error {
	var errs []error
	if !a.DType.IsFloat() {
		errs = append(errs, fmt.Errorf("dtype %v is not a floating point kind", a.DType))
	}
	if a.GPUMemoryUtilization <= 0 || a.GPUMemoryUtilization > 1 {
		errs = append(errs, fmt.Errorf("gpu memory utilization %v must be in (0, 1]", a.GPUMemoryUtilization))
	}
	if a.BlockSize <= 0 {
		errs = append(errs, errors.New("block size must be positive"))
	}
	if a.MaxBatchedTokens <= 0 {
		errs = append(errs, errors.New("max batched tokens must be positive"))
	}
	if a.MaxSequences <= 0 {
		errs = append(errs, errors.New("max sequences must be positive"))
	}
	if a.ProfileStepNo < 0 {
		errs = append(errs, errors.New("profile step must not be negative"))
	}
	return errors.Join(errs...)
}
