package world

import (
	"context"
	"fmt"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	wfnode "world-forge-api/internal/workflow/node"
	"world-forge-api/internal/workflow/prompt"
	"world-forge-api/pkg/logger"
)

// LocationStage 生成顶层地点及其子地点
type LocationStage struct {
	env *Env
}

func NewLocationStage(env *Env) *LocationStage {
	return &LocationStage{env: env}
}

// Run 顶层地点作为一个工作单元提交后，再为每个顶层地点独立生成子地点。
// 子地点失败只记录日志，不影响阶段结果。
func (s *LocationStage) Run(ctx context.Context) ([]PlacedLocation, StageResult) {
	var top []PlacedLocation
	err := s.env.Runner.Attempt(ctx, StageLocations, func(ctx context.Context, sess repository.Session) error {
		top = nil
		text, err := s.env.ask(ctx, prompt.SlotLocations, nil)
		if err != nil {
			return err
		}
		recs, err := wfnode.ExtractMany[wfnode.LocationRecord](ctx, text, "")
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("%w: no locations in model output", wfnode.ErrExtraction)
		}
		for _, rec := range recs {
			loc := s.newLocation(rec, nil)
			if err := sess.CreateLocation(ctx, loc); err != nil {
				return err
			}
			top = append(top, PlacedLocation{Location: loc})
		}
		return nil
	})
	if err != nil {
		return nil, failuref("Failed to create locations: %v", err)
	}

	var subCount, skipped int
	for _, parent := range top {
		n, err := s.createSubLocations(ctx, parent)
		if err != nil {
			skipped++
			logger.Warn(ctx, "sub-location generation exhausted, location keeps no sub-locations",
				"location_id", parent.ID,
				"location", parent.Name,
				"error", err.Error(),
			)
			continue
		}
		subCount += n
	}

	res := success("Locations and sub-locations created successfully").
		with("locations", len(top)).
		with("sub_locations", subCount)
	if skipped > 0 {
		res = res.with("locations_without_sub_locations", skipped)
	}
	return top, res
}

func (s *LocationStage) createSubLocations(ctx context.Context, parent PlacedLocation) (int, error) {
	var created int
	err := s.env.Runner.Attempt(ctx, StageLocations+".sub_locations", func(ctx context.Context, sess repository.Session) error {
		created = 0
		text, err := s.env.ask(ctx, prompt.SlotSubLocations, map[string]any{
			prompt.VarLocation: describeLocation(parent.Location),
		})
		if err != nil {
			return err
		}
		recs, err := wfnode.ExtractMany[wfnode.LocationRecord](ctx, text, "")
		if err != nil {
			return err
		}
		parentID := parent.ID
		for _, rec := range recs {
			if err := sess.CreateLocation(ctx, s.newLocation(rec, &parentID)); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	return created, err
}

func (s *LocationStage) newLocation(rec *wfnode.LocationRecord, parentID *string) *entity.Location {
	return &entity.Location{
		SeedID:      s.env.SeedID,
		ParentID:    parentID,
		Name:        rec.Name,
		Description: rec.Description,
		Longitude:   rec.Longitude,
		Latitude:    rec.Latitude,
		Type:        rec.Type,
		Climate:     rec.Climate,
		Terrain:     rec.Terrain,
	}
}
