// Package gate is a small permission gate: role profiles grant
// "resource:action" permissions and optional per-resource policies add
// ownership checks on top. It knows nothing about the blood-bank domain;
// the subject type is a type parameter.
package gate

import (
	"context"
	"errors"
)

// Sentinel errors returned by Authorize.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)

// Policy decides whether subject may perform action on resource.
// For list/create the resource may be nil.
type Policy[S any] interface {
	Can(ctx context.Context, subject S, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[S any] func(ctx context.Context, subject S, action Action, resource any) bool

func (f PolicyFunc[S]) Can(ctx context.Context, subject S, action Action, resource any) bool {
	return f(ctx, subject, action, resource)
}

// Gate combines profile permissions with resource policies:
//  1. the subject must be non-zero
//  2. its profile must grant resource:action
//  3. when a resource is given and a policy is registered, the policy must agree
type Gate[S comparable] struct {
	resolver ProfileResolver[S]
	policies map[string]Policy[S]
}

func New[S comparable](resolver ProfileResolver[S]) *Gate[S] {
	return &Gate[S]{resolver: resolver, policies: make(map[string]Policy[S])}
}

// Register sets the policy of a resource type, replacing any previous one.
func (g *Gate[S]) Register(resourceType string, p Policy[S]) {
	g.policies[resourceType] = p
}

func (g *Gate[S]) Authorize(ctx context.Context, subject S, action Action, resourceType string, resource any) error {
	if !g.CanProfile(ctx, subject, action, resourceType) {
		return ErrUnauthorized
	}
	if resource == nil {
		return nil
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return nil
	}
	if !p.Can(ctx, subject, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[S]) Can(ctx context.Context, subject S, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}

// CanProfile checks the profile permission only. Templates use it to show
// buttons before a resource is loaded.
func (g *Gate[S]) CanProfile(ctx context.Context, subject S, action Action, resourceType string) bool {
	var zero S
	if subject == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}

// Check runs a registered policy alone and reports ErrNoPolicyDefined when
// there is none.
func (g *Gate[S]) Check(ctx context.Context, subject S, action Action, resourceType string, resource any) error {
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, subject, action, resource) {
		return ErrUnauthorized
	}
	return nil
}
