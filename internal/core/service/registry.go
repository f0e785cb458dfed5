package service

import (
	"fmt"
	"sync"

	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

type ComponentRegistry struct {
	mu                sync.RWMutex
	resourceClients   map[string]ports.ResourceClient
	definitionSources map[string]ports.DefinitionSource
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		resourceClients:   make(map[string]ports.ResourceClient),
		definitionSources: make(map[string]ports.DefinitionSource),
	}
}

func (r *ComponentRegistry) RegisterResourceClient(client ports.ResourceClient) error {
	if client == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil resource client")
	}
	clientType := client.Type()
	if clientType == "" {
		return errors.New(errors.CodeInternal, "resource client type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resourceClients[clientType]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("resource client type '%s' already registered", clientType))
	}
	r.resourceClients[clientType] = client
	return nil
}

func (r *ComponentRegistry) GetResourceClient(clientType string) (ports.ResourceClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, exists := r.resourceClients[clientType]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("resource client type '%s' not found", clientType))
	}
	return client, nil
}

func (r *ComponentRegistry) RegisterDefinitionSource(source ports.DefinitionSource) error {
	if source == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil definition source")
	}
	sourceType := source.Type()
	if sourceType == "" {
		return errors.New(errors.CodeInternal, "definition source type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitionSources[sourceType]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("definition source type '%s' already registered", sourceType))
	}
	r.definitionSources[sourceType] = source
	return nil
}

func (r *ComponentRegistry) GetDefinitionSource(sourceType string) (ports.DefinitionSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.definitionSources[sourceType]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("definition source type '%s' not found", sourceType))
	}
	return source, nil
}
