package configuration

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"

	"github.com/dynamock-io/dynamock/internal/app/dynamock"
)

// NewFromEnv reads the server configuration from the environment, applying
// defaults for anything unset.
func NewFromEnv() (dynamock.Config, error) {
	ctx := context.Background()

	var config dynamock.Config
	err := envconfig.Process(ctx, &config)
	if err != nil {
		return config, errors.Wrap(err, "process env config")
	}
	return config, nil
}
