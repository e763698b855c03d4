package citekey

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jschaf/bibmgr/entry"
)

// ExistsChecker is an I/O-bound existence check, e.g. a repository lookup.
type ExistsChecker func(ctx context.Context, key string) (bool, error)

// GenerateAsync generates a key for one entry using an I/O-bound exists
// checker, for callers whose backend requires a round trip per check.
func (g *Generator) GenerateAsync(ctx context.Context, e entry.Entry, exists ExistsChecker) (string, error) {
	base, err := g.Base(e)
	if err != nil {
		return "", err
	}
	key := base
	if g.cfg.AutoDisambiguate {
		n := g.seen[base]
		g.seen[base] = n + 1
		if n > 0 {
			key = base + disambigSuffix(n)
		}
	}
	ok, err := exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return key, nil
	}
	syncExists := func(k string) bool {
		found, _ := exists(ctx, k)
		return found
	}
	return g.resolveCollision(base, key, e, syncExists)
}

// GenerateBatchAsync generates keys for every entry in entries, issuing
// their exists checks concurrently while preserving per-entry determinism:
// result[i] is always the key generated for entries[i], computed as if the
// calls ran sequentially in input order (auto-disambiguation state is
// advanced synchronously before any goroutine starts, since Generator is
// not safe for concurrent Generate/Base calls).
func (g *Generator) GenerateBatchAsync(ctx context.Context, entries []entry.Entry, exists ExistsChecker) ([]string, error) {
	bases := make([]string, len(entries))
	keys := make([]string, len(entries))
	for i, e := range entries {
		base, err := g.Base(e)
		if err != nil {
			return nil, err
		}
		bases[i] = base
		key := base
		if g.cfg.AutoDisambiguate {
			n := g.seen[base]
			g.seen[base] = n + 1
			if n > 0 {
				key = base + disambigSuffix(n)
			}
		}
		keys[i] = key
	}

	collisions := make([]bool, len(entries))
	grp, gctx := errgroup.WithContext(ctx)
	for i := range entries {
		i := i
		grp.Go(func() error {
			ok, err := exists(gctx, keys[i])
			if err != nil {
				return err
			}
			collisions[i] = ok
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	for i, e := range entries {
		if !collisions[i] {
			continue
		}
		syncExists := func(k string) bool {
			found, _ := exists(ctx, k)
			return found
		}
		resolved, err := g.resolveCollision(bases[i], keys[i], e, syncExists)
		if err != nil {
			return nil, err
		}
		keys[i] = resolved
	}
	return keys, nil
}
