// ABOUTME: Test data generation for the admins plugin.
// ABOUTME: Creates the group tree and a set of admins, a few of them in the trash.

package admins

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/2389/basiclist/internal/seed"
	"github.com/2389/basiclist/plugins/core"
)

// trashEvery puts every n-th seeded admin in the trash.
const trashEvery = 6

// Seed creates groups and admins, using AI generated names when available.
func (p *AdminsPlugin) Seed(ctx context.Context, size string) (core.SeedData, error) {
	if p.store == nil {
		return core.SeedData{}, fmt.Errorf("admins store not initialized")
	}

	var numAdmins int
	switch size {
	case "small":
		numAdmins = 8
	case "large":
		numAdmins = 60
	default:
		numAdmins = 25
	}

	groupIDs, err := p.seedGroups(ctx)
	if err != nil {
		return core.SeedData{}, err
	}

	generator := seed.NewGenerator(p.log)
	if !generator.UsesAI() {
		log.Println("Using static seed data for admins plugin")
	}
	data := generator.Generate(ctx, numAdmins)

	now := time.Now().UTC()
	var created, trashed []int64
	for i, a := range data {
		in := AdminInput{
			Username:    a.Username,
			DisplayName: a.DisplayName,
			Status:      a.Status,
			CreateTime:  now.Add(-time.Duration(len(data)-i) * 26 * time.Hour),
		}
		for _, name := range a.Groups {
			if id, ok := groupIDs[name]; ok {
				in.Groups = append(in.Groups, id)
			}
		}
		id, err := p.store.Create(ctx, in)
		if errors.Is(err, ErrDuplicateUsername) {
			continue
		}
		if err != nil {
			log.Printf("Failed to create admin %s: %v", a.Username, err)
			continue
		}
		created = append(created, id)
		if (i+1)%trashEvery == 0 {
			trashed = append(trashed, id)
		}
	}
	if len(trashed) > 0 {
		if _, err := p.store.SoftDelete(ctx, trashed); err != nil {
			return core.SeedData{}, fmt.Errorf("trash seeded admins: %w", err)
		}
	}

	return core.SeedData{
		Summary: fmt.Sprintf("Created %d admins (%d in trash) across %d groups", len(created), len(trashed), len(groupIDs)),
		Records: map[string]int{
			"admins":       len(created) - len(trashed),
			"admins-trash": len(trashed),
			"groups":       len(groupIDs),
		},
	}, nil
}

// seedGroups creates the fixed group tree, reusing groups that already exist.
// It returns database ids keyed by group name.
func (p *AdminsPlugin) seedGroups(ctx context.Context) (map[string]int64, error) {
	existing, err := p.store.Groups(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(existing))
	for _, g := range existing {
		ids[g.Name] = g.ID
	}

	bySeedID := map[int]string{}
	for _, g := range seed.Groups() {
		bySeedID[g.ID] = g.Name
		if _, ok := ids[g.Name]; ok {
			continue
		}
		var parent int64
		if g.ParentID != 0 {
			parent = ids[bySeedID[g.ParentID]]
		}
		id, err := p.store.CreateGroup(ctx, g.Name, parent)
		if err != nil {
			return nil, err
		}
		ids[g.Name] = id
	}
	return ids, nil
}
