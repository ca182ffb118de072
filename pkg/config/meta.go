package config

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

// ResourceMeta stores the metadata associated with an optimizer or snapshot config.
// Inspired by the meta structs in Kubernetes objects.
type ResourceMeta struct {
	Name        string            `json:"name"`
	Cluster     string            `json:"cluster"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

// Validate evaluates whether the ResourceMeta is valid.
func (rm *ResourceMeta) Validate() error {
	var err error
	if rm.Name == "" {
		err = multierror.Append(err, errors.New("Name must be set"))
	}
	if rm.Cluster == "" {
		err = multierror.Append(err, errors.New("Cluster must be set"))
	}
	return err
}
