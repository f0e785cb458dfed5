package ports

import (
	"context"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
)

type DefinitionSource interface {
	Type() string
	Load(ctx context.Context) ([]domain.ResourceDefinition, error)
}
