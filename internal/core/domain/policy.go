package domain

// Policy selects what happens when a desired resource already exists.
type Policy string

const (
	// PolicyCreateOnly never overwrites an existing resource.
	PolicyCreateOnly Policy = "create-only"
	// PolicyCreateOrUpdate overwrites existing resources whose payload
	// differs from the desired definition.
	PolicyCreateOrUpdate Policy = "create-or-update"
)

func (p Policy) Valid() bool {
	return p == PolicyCreateOnly || p == PolicyCreateOrUpdate
}
