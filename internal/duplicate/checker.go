// Package duplicate defines the duplicate-customer detection port consulted
// before an application is created.
package duplicate

import (
	"context"
	"sync"

	dErrors "konto/pkg/domain-errors"
)

// Checker reports whether an applicant already exists. Implementations decide
// what fuzzy matching means; the core only cares about the conflict verdict.
type Checker interface {
	CheckDuplicates(ctx context.Context, ssn, email, phone string) error
}

// InMemoryChecker tracks exact SSN/email/phone matches. Dev and test wiring;
// the production checker lives in the customer master system.
type InMemoryChecker struct {
	mu     sync.RWMutex
	ssns   map[string]bool
	emails map[string]bool
	phones map[string]bool
}

func NewInMemoryChecker() *InMemoryChecker {
	return &InMemoryChecker{
		ssns:   make(map[string]bool),
		emails: make(map[string]bool),
		phones: make(map[string]bool),
	}
}

func (c *InMemoryChecker) CheckDuplicates(_ context.Context, ssn, email, phone string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ssns[ssn] || c.emails[email] || c.phones[phone] {
		return dErrors.New(dErrors.CodeConflict, "an application or customer with these details already exists")
	}
	return nil
}

// Register records an applicant's identifiers so later checks conflict.
func (c *InMemoryChecker) Register(ssn, email, phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ssns[ssn] = true
	c.emails[email] = true
	c.phones[phone] = true
}
