// Package idgenerator contains the default [domain.IDGenerator]
// implementation using random UUIDs, matching the ID shape the server
// assigns to documents created without one.
package idgenerator

import (
	"io"

	"github.com/google/uuid"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	reader io.Reader
}

// NewIDGenerator returns a new implementation of [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	i := IDGenerator{}
	for _, opt := range opts {
		opt(&i)
	}
	return &i
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID() (string, error) {
	if i.reader != nil {
		id, err := uuid.NewRandomFromReader(i.reader)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Option configures idgenerator behavior through the functional options
// pattern.
type Option func(*IDGenerator)

// WithRandomReader sets the randomness source used to create IDs.
func WithRandomReader(r io.Reader) Option {
	return func(i *IDGenerator) {
		i.reader = r
	}
}
